package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/pkg/enums"
)

// GatewayTransaction records confirmed money movement reported by the
// gateway, in major units.
type GatewayTransaction struct {
	ID                   uuid.UUID                    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentEventID       uuid.UUID                    `gorm:"column:payment_event_id;type:uuid;not null;index"`
	Type                 enums.GatewayTransactionType `gorm:"column:type;not null;default:'CHARGE'"`
	Amount               decimal.Decimal              `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency             enums.Currency               `gorm:"column:currency;not null;default:'KES'"`
	GatewayTransactionID string                       `gorm:"column:gateway_transaction_id;not null;unique"`
	ProcessedAt          time.Time                    `gorm:"column:processed_at;not null"`
	CreatedAt            time.Time                    `gorm:"column:created_at;autoCreateTime"`
}
