package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/pkg/enums"
)

// WalletCreditedEvent records funds landing in a wallet.
type WalletCreditedEvent struct {
	WalletID    uuid.UUID       `json:"wallet_id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    enums.Currency  `json:"currency"`
	ReferenceID *uuid.UUID      `json:"reference_id,omitempty"`
	Description string          `json:"description,omitempty"`
}

// WalletDebitedEvent records funds leaving a wallet.
type WalletDebitedEvent struct {
	WalletID    uuid.UUID       `json:"wallet_id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    enums.Currency  `json:"currency"`
	ReferenceID *uuid.UUID      `json:"reference_id,omitempty"`
	Description string          `json:"description,omitempty"`
}

// PaymentSucceededEvent is emitted once per confirmed gateway charge.
type PaymentSucceededEvent struct {
	PaymentEventID   uuid.UUID       `json:"payment_event_id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	UserID           uuid.UUID       `json:"user_id"`
	GatewayReference string          `json:"gateway_reference"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         enums.Currency  `json:"currency"`
	ProcessedAt      time.Time       `json:"processed_at"`
}

// RewardCreatedEvent signals a funded campaign went live.
type RewardCreatedEvent struct {
	RewardID      uuid.UUID        `json:"reward_id"`
	TenantID      uuid.UUID        `json:"tenant_id"`
	SurveyID      uuid.UUID        `json:"survey_id"`
	RewardType    enums.RewardType `json:"reward_type"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	MaxRecipients int              `json:"max_recipients"`
}

// RewardCancelledEvent carries the refund issued when a campaign stops early.
type RewardCancelledEvent struct {
	RewardID       uuid.UUID       `json:"reward_id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	SurveyID       uuid.UUID       `json:"survey_id"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	CancelledAt    time.Time       `json:"cancelled_at"`
}

// RewardDisbursedEvent is emitted per successful participant payout.
type RewardDisbursedEvent struct {
	RewardTransactionID   uuid.UUID        `json:"reward_transaction_id"`
	RewardID              uuid.UUID        `json:"reward_id"`
	ParticipantID         uuid.UUID        `json:"participant_id"`
	RewardType            enums.RewardType `json:"reward_type"`
	Amount                decimal.Decimal  `json:"amount"`
	Currency              enums.Currency   `json:"currency"`
	ProviderTransactionID string           `json:"provider_transaction_id,omitempty"`
}

// RewardDepletedEvent fires once when the last slot is consumed.
type RewardDepletedEvent struct {
	RewardID   uuid.UUID `json:"reward_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	SurveyID   uuid.UUID `json:"survey_id"`
	DepletedAt time.Time `json:"depleted_at"`
}

// DisbursementFailedEvent reports a terminal payout failure.
type DisbursementFailedEvent struct {
	RewardTransactionID uuid.UUID `json:"reward_transaction_id"`
	RewardID            uuid.UUID `json:"reward_id"`
	ParticipantID       uuid.UUID `json:"participant_id"`
	Reason              string    `json:"reason"`
}

// SubscriptionUpdatedEvent mirrors a gateway subscription change.
type SubscriptionUpdatedEvent struct {
	SubscriptionID          uuid.UUID                `json:"subscription_id"`
	TenantID                uuid.UUID                `json:"tenant_id"`
	GatewaySubscriptionCode string                   `json:"gateway_subscription_code"`
	Status                  enums.SubscriptionStatus `json:"status"`
}

// InvoiceUpdatedEvent mirrors a gateway invoice change.
type InvoiceUpdatedEvent struct {
	InvoiceID        uuid.UUID           `json:"invoice_id"`
	TenantID         uuid.UUID           `json:"tenant_id"`
	GatewayInvoiceID string              `json:"gateway_invoice_id"`
	Status           enums.InvoiceStatus `json:"status"`
}

// SMSRequestedEvent asks the notification pipeline to text a participant.
type SMSRequestedEvent struct {
	PhoneNumber string    `json:"phone_number"`
	Message     string    `json:"message"`
	ReferenceID uuid.UUID `json:"reference_id"`
}

// NotificationRequestedEvent tells downstream systems to alert an operator.
type NotificationRequestedEvent struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Type     string    `json:"type"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
}
