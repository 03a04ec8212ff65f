package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/pkg/enums"
)

// SystemWallet tracks a platform-owned inventory pool (airtime, data
// bundles) bought from the telco in bulk. ReservedBalance never exceeds
// CurrentBalance; both stay non-negative.
type SystemWallet struct {
	ID              uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	WalletType      enums.SystemWalletType `gorm:"column:wallet_type;not null;unique"`
	CurrentBalance  decimal.Decimal        `gorm:"column:current_balance;type:numeric(14,2);not null;default:0"`
	ReservedBalance decimal.Decimal        `gorm:"column:reserved_balance;type:numeric(14,2);not null;default:0"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// Available is the portion of the pool not held by open reservations.
func (s SystemWallet) Available() decimal.Decimal {
	return s.CurrentBalance.Sub(s.ReservedBalance)
}
