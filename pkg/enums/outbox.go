package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateWallet            OutboxAggregateType = "wallet"
	AggregateReward            OutboxAggregateType = "reward"
	AggregateRewardTransaction OutboxAggregateType = "reward_transaction"
	AggregatePaymentEvent      OutboxAggregateType = "payment_event"
	AggregateSubscription      OutboxAggregateType = "subscription"
	AggregateNotification      OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateWallet,
	AggregateReward,
	AggregateRewardTransaction,
	AggregatePaymentEvent,
	AggregateSubscription,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventWalletCredited        OutboxEventType = "wallet_credited"
	EventWalletDebited         OutboxEventType = "wallet_debited"
	EventPaymentSucceeded      OutboxEventType = "payment_succeeded"
	EventRewardCreated         OutboxEventType = "reward_created"
	EventRewardCancelled       OutboxEventType = "reward_cancelled"
	EventRewardDisbursed       OutboxEventType = "reward_disbursed"
	EventRewardDepleted        OutboxEventType = "reward_depleted"
	EventDisbursementFailed    OutboxEventType = "disbursement_failed"
	EventSubscriptionUpdated   OutboxEventType = "subscription_updated"
	EventInvoiceUpdated        OutboxEventType = "invoice_updated"
	EventSMSRequested          OutboxEventType = "sms_requested"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventWalletCredited,
	EventWalletDebited,
	EventPaymentSucceeded,
	EventRewardCreated,
	EventRewardCancelled,
	EventRewardDisbursed,
	EventRewardDepleted,
	EventDisbursementFailed,
	EventSubscriptionUpdated,
	EventInvoiceUpdated,
	EventSMSRequested,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
