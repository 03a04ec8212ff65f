package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/pkg/enums"
)

// LoyaltyAccount holds a participant's points balance. One row per user,
// created lazily on first credit.
type LoyaltyAccount struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;unique"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// LoyaltyTransaction is an append-only points ledger entry.
type LoyaltyTransaction struct {
	ID                  uuid.UUID                    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID           uuid.UUID                    `gorm:"column:account_id;type:uuid;not null;index"`
	Amount              decimal.Decimal              `gorm:"column:amount;type:numeric(14,2);not null"`
	Type                enums.LoyaltyTransactionType `gorm:"column:type;not null"`
	Description         string                       `gorm:"column:description;not null"`
	RewardTransactionID *uuid.UUID                   `gorm:"column:reward_transaction_id;type:uuid;index"`
	CreatedAt           time.Time                    `gorm:"column:created_at;autoCreateTime;index"`
}
