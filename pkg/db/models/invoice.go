package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/pkg/enums"
)

// Invoice mirrors a gateway invoice, upserted from webhook payloads.
type Invoice struct {
	ID               uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID         uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null;index"`
	SubscriptionID   *uuid.UUID          `gorm:"column:subscription_id;type:uuid;index"`
	GatewayInvoiceID string              `gorm:"column:gateway_invoice_id;not null;unique"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency         enums.Currency      `gorm:"column:currency;not null;default:'KES'"`
	Status           enums.InvoiceStatus `gorm:"column:status;not null;default:'PENDING'"`
	DueDate          *time.Time          `gorm:"column:due_date"`
	InvoiceURL       *string             `gorm:"column:invoice_url"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
