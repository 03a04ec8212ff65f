package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sautihq/sauti-backend/pkg/enums"
)

// Subscription mirrors the gateway's subscription record for a tenant.
// Rows are upserted from webhook payloads keyed by the gateway code.
type Subscription struct {
	ID                      uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID                uuid.UUID                `gorm:"column:tenant_id;type:uuid;not null;index"`
	UserID                  *uuid.UUID               `gorm:"column:user_id;type:uuid"`
	PlanCode                string                   `gorm:"column:plan_code;not null"`
	GatewaySubscriptionCode string                   `gorm:"column:gateway_subscription_code;not null;unique"`
	GatewayCustomerCode     string                   `gorm:"column:gateway_customer_code;not null;index"`
	Status                  enums.SubscriptionStatus `gorm:"column:status;not null;default:'ACTIVE'"`
	CurrentPeriodStart      *time.Time               `gorm:"column:current_period_start"`
	CurrentPeriodEnd        *time.Time               `gorm:"column:current_period_end"`
	CreatedAt               time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
