package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/pkg/enums"
)

// RewardTransaction records one disbursement attempt to one participant.
// A participant can hold at most one non-FAILED row per reward.
type RewardTransaction struct {
	ID                    uuid.UUID                     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RewardID              uuid.UUID                     `gorm:"column:reward_id;type:uuid;not null;index"`
	ParticipantID         uuid.UUID                     `gorm:"column:participant_id;type:uuid;not null;index"`
	RecipientIdentifier   string                        `gorm:"column:recipient_identifier;not null"`
	Amount                decimal.Decimal               `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency              enums.Currency                `gorm:"column:currency;not null;default:'KES'"`
	Status                enums.RewardTransactionStatus `gorm:"column:status;not null;default:'PENDING';index"`
	ProviderTransactionID *string                       `gorm:"column:provider_transaction_id"`
	FailureReason         *string                       `gorm:"column:failure_reason"`
	CreatedAt             time.Time                     `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt             time.Time                     `gorm:"column:updated_at;autoUpdateTime"`
}
