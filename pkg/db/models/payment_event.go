package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/pkg/enums"
)

// PaymentEvent tracks an inbound top-up from initiation through gateway
// confirmation. GatewayReference is the gateway's unique handle; the
// idempotency key dedupes client retries within a tenant.
type PaymentEvent struct {
	ID               uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID         uuid.UUID            `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_payment_events_tenant_idem"`
	UserID           uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	Email            string               `gorm:"column:email;not null"`
	SurveyID         *uuid.UUID           `gorm:"column:survey_id;type:uuid"`
	IdempotencyKey   string               `gorm:"column:idempotency_key;not null;uniqueIndex:idx_payment_events_tenant_idem"`
	Gateway          enums.PaymentGateway `gorm:"column:gateway;not null;default:'PAYSTACK'"`
	GatewayReference string               `gorm:"column:gateway_reference;not null;unique"`
	Amount           decimal.Decimal      `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency         enums.Currency       `gorm:"column:currency;not null;default:'KES'"`
	Status           enums.PaymentStatus  `gorm:"column:status;not null;default:'PENDING';index"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
