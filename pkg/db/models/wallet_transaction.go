package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/pkg/enums"
)

// WalletTransaction is an append-only ledger entry. Amounts are always
// positive; direction lives in Type.
type WalletTransaction struct {
	ID          uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID    uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null;index"`
	Amount      decimal.Decimal             `gorm:"column:amount;type:numeric(14,2);not null"`
	Type        enums.WalletTransactionType `gorm:"column:type;not null"`
	ReferenceID *uuid.UUID                  `gorm:"column:reference_id;type:uuid;index"`
	Description string                      `gorm:"column:description;not null"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime;index"`
}
