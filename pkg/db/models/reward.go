package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/pkg/enums"
)

// Reward is a funded incentive campaign attached to a survey. One campaign
// per (tenant, survey). RemainingRewards only ever decreases after create.
type Reward struct {
	ID                 uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID           uuid.UUID          `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_rewards_tenant_survey"`
	SurveyID           uuid.UUID          `gorm:"column:survey_id;type:uuid;not null;uniqueIndex:idx_rewards_tenant_survey"`
	UserID             uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	RewardType         enums.RewardType   `gorm:"column:reward_type;not null"`
	TotalAmount        decimal.Decimal    `gorm:"column:total_amount;type:numeric(14,2);not null"`
	AmountPerRecipient decimal.Decimal    `gorm:"column:amount_per_recipient;type:numeric(14,2);not null"`
	Currency           enums.Currency     `gorm:"column:currency;not null;default:'KES'"`
	Provider           string             `gorm:"column:provider;not null"`
	MaxRecipients      int                `gorm:"column:max_recipients;not null"`
	RemainingRewards   int                `gorm:"column:remaining_rewards;not null"`
	Status             enums.RewardStatus `gorm:"column:status;not null;default:'ACTIVE';index"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
