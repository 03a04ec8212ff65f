package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sautihq/sauti-backend/pkg/config"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	"github.com/sautihq/sauti-backend/pkg/outbox"
	"github.com/sautihq/sauti-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.PaymentsTopic == "" {
		return nil, fmt.Errorf("payments topic is required")
	}
	if cfg.RewardsTopic == "" {
		return nil, fmt.Errorf("rewards topic is required")
	}
	if cfg.NotificationsTopic == "" {
		return nil, fmt.Errorf("notifications topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	paymentsTopic := cfg.PaymentsTopic
	rewardsTopic := cfg.RewardsTopic
	notificationsTopic := cfg.NotificationsTopic

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventWalletCredited,
			AggregateType:  enums.AggregateWallet,
			Topic:          paymentsTopic,
			PayloadFactory: func() interface{} { return &payloads.WalletCreditedEvent{} },
		},
		{
			EventType:      enums.EventWalletDebited,
			AggregateType:  enums.AggregateWallet,
			Topic:          paymentsTopic,
			PayloadFactory: func() interface{} { return &payloads.WalletDebitedEvent{} },
		},
		{
			EventType:      enums.EventPaymentSucceeded,
			AggregateType:  enums.AggregatePaymentEvent,
			Topic:          paymentsTopic,
			PayloadFactory: func() interface{} { return &payloads.PaymentSucceededEvent{} },
		},
		{
			EventType:      enums.EventSubscriptionUpdated,
			AggregateType:  enums.AggregateSubscription,
			Topic:          paymentsTopic,
			PayloadFactory: func() interface{} { return &payloads.SubscriptionUpdatedEvent{} },
		},
		{
			EventType:      enums.EventInvoiceUpdated,
			AggregateType:  enums.AggregateSubscription,
			Topic:          paymentsTopic,
			PayloadFactory: func() interface{} { return &payloads.InvoiceUpdatedEvent{} },
		},
	} {
		reg.register(desc)
	}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventRewardCreated,
			AggregateType:  enums.AggregateReward,
			Topic:          rewardsTopic,
			PayloadFactory: func() interface{} { return &payloads.RewardCreatedEvent{} },
		},
		{
			EventType:      enums.EventRewardCancelled,
			AggregateType:  enums.AggregateReward,
			Topic:          rewardsTopic,
			PayloadFactory: func() interface{} { return &payloads.RewardCancelledEvent{} },
		},
		{
			EventType:      enums.EventRewardDepleted,
			AggregateType:  enums.AggregateReward,
			Topic:          rewardsTopic,
			PayloadFactory: func() interface{} { return &payloads.RewardDepletedEvent{} },
		},
		{
			EventType:      enums.EventRewardDisbursed,
			AggregateType:  enums.AggregateRewardTransaction,
			Topic:          rewardsTopic,
			PayloadFactory: func() interface{} { return &payloads.RewardDisbursedEvent{} },
		},
		{
			EventType:      enums.EventDisbursementFailed,
			AggregateType:  enums.AggregateRewardTransaction,
			Topic:          rewardsTopic,
			PayloadFactory: func() interface{} { return &payloads.DisbursementFailedEvent{} },
		},
	} {
		reg.register(desc)
	}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventSMSRequested,
			AggregateType:  enums.AggregateNotification,
			Topic:          notificationsTopic,
			PayloadFactory: func() interface{} { return &payloads.SMSRequestedEvent{} },
		},
		{
			EventType:      enums.EventNotificationRequested,
			AggregateType:  enums.AggregateNotification,
			Topic:          notificationsTopic,
			PayloadFactory: func() interface{} { return &payloads.NotificationRequestedEvent{} },
		},
	} {
		reg.register(desc)
	}

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, NewNonRetryableError(fmt.Errorf("payload factory not configured for %s", event.EventType))
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
