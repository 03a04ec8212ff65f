package paystack

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/internal/billing"
	"github.com/sautihq/sauti-backend/internal/payments"
	"github.com/sautihq/sauti-backend/internal/wallets"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
	"github.com/sautihq/sauti-backend/pkg/outbox"
	"github.com/sautihq/sauti-backend/pkg/outbox/payloads"
)

// consumerName scopes the Redis dedupe keys for this webhook pipeline.
const consumerName = "paystack-webhook"

// webhookNamespace derives a deterministic UUID per delivery so replays of
// the same event+reference map onto one dedupe key.
var webhookNamespace = uuid.MustParse("a3b1f5d0-64f1-4f7c-9c63-2f1f6e1f0a11")

var minorUnitFactor = decimal.NewFromInt(100)

type signatureVerifier interface {
	VerifySignature(rawBody []byte, signature string) bool
}

type dedupeGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentLedger interface {
	FindByGatewayReference(ctx context.Context, reference string) (*models.PaymentEvent, error)
	ConfirmChargeTx(ctx context.Context, tx *gorm.DB, input payments.ConfirmInput) (bool, error)
	MarkFailedTx(ctx context.Context, tx *gorm.DB, eventID uuid.UUID) error
}

type walletFunds interface {
	CreditTx(ctx context.Context, tx *gorm.DB, input wallets.MutationInput) (*models.Wallet, error)
}

type billingReconciler interface {
	UpsertSubscription(ctx context.Context, input billing.SubscriptionUpsert) (*models.Subscription, error)
	UpsertInvoice(ctx context.Context, input billing.InvoiceUpsert) (*models.Invoice, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Processor ingests Paystack webhook deliveries. Everything past signature
// verification is best effort: the gateway retries on non-200s, so handler
// problems are logged and swallowed rather than bounced.
type Processor struct {
	verifier signatureVerifier
	dedupe   dedupeGuard
	tx       txRunner
	payments paymentLedger
	wallet   walletFunds
	billing  billingReconciler
	outbox   outboxPublisher
	logg     *logger.Logger
}

// NewProcessor wires the webhook pipeline.
func NewProcessor(
	verifier signatureVerifier,
	dedupe dedupeGuard,
	tx txRunner,
	paymentSvc paymentLedger,
	wallet walletFunds,
	billingSvc billingReconciler,
	publisher outboxPublisher,
	logg *logger.Logger,
) (*Processor, error) {
	if verifier == nil {
		return nil, fmt.Errorf("signature verifier required")
	}
	if dedupe == nil {
		return nil, fmt.Errorf("dedupe guard required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if paymentSvc == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if billingSvc == nil {
		return nil, fmt.Errorf("billing service required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Processor{
		verifier: verifier,
		dedupe:   dedupe,
		tx:       tx,
		payments: paymentSvc,
		wallet:   wallet,
		billing:  billingSvc,
		outbox:   publisher,
		logg:     logg,
	}, nil
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type chargeData struct {
	ID        int64           `json:"id"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	PaidAt    *time.Time      `json:"paid_at"`
}

type webhookMetadata struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
}

type subscriptionData struct {
	SubscriptionCode string `json:"subscription_code"`
	Status           string `json:"status"`
	NextPaymentDate  *time.Time `json:"next_payment_date"`
	Plan             struct {
		PlanCode string `json:"plan_code"`
	} `json:"plan"`
	Customer struct {
		CustomerCode string          `json:"customer_code"`
		Metadata     webhookMetadata `json:"metadata"`
	} `json:"customer"`
	CreatedAt *time.Time `json:"createdAt"`
}

type invoiceData struct {
	InvoiceCode  string          `json:"invoice_code"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	DueDate      *time.Time      `json:"due_date"`
	Subscription struct {
		SubscriptionCode string `json:"subscription_code"`
	} `json:"subscription"`
	Customer struct {
		CustomerCode string          `json:"customer_code"`
		Metadata     webhookMetadata `json:"metadata"`
	} `json:"customer"`
}

// Process handles one raw delivery. A nil return means the caller should
// answer 200; only structurally malformed payloads come back as errors.
func (p *Processor) Process(ctx context.Context, rawBody []byte, signature string) error {
	if !p.verifier.VerifySignature(rawBody, signature) {
		p.logg.Warn(ctx, "webhook signature verification failed, dropping delivery")
		return nil
	}

	var env envelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	if env.Event == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook payload missing event type")
	}

	dedupeRef, err := p.dedupeReference(env)
	if err != nil {
		return err
	}
	eventID := uuid.NewSHA1(webhookNamespace, []byte(env.Event+":"+dedupeRef))

	processed, err := p.dedupe.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		return err
	}
	if processed {
		p.logg.Info(p.logg.WithField(ctx, "event", env.Event), "duplicate webhook delivery skipped")
		return nil
	}

	if err := p.route(ctx, env); err != nil {
		// Release the dedupe mark so the gateway's retry gets another shot.
		if delErr := p.dedupe.Delete(ctx, consumerName, eventID); delErr != nil {
			p.logg.Error(ctx, "failed to release webhook dedupe key", delErr)
		}
		p.logg.Error(p.logg.WithField(ctx, "event", env.Event), "webhook handler failed", err)
	}
	return nil
}

func (p *Processor) dedupeReference(env envelope) (string, error) {
	switch {
	case strings.HasPrefix(env.Event, "charge."):
		var data chargeData
		if err := json.Unmarshal(env.Data, &data); err != nil || data.Reference == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "charge webhook missing reference")
		}
		return data.Reference, nil
	case strings.HasPrefix(env.Event, "subscription."):
		var data subscriptionData
		if err := json.Unmarshal(env.Data, &data); err != nil || data.SubscriptionCode == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "subscription webhook missing code")
		}
		return data.SubscriptionCode + ":" + data.Status, nil
	case strings.HasPrefix(env.Event, "invoice."):
		var data invoiceData
		if err := json.Unmarshal(env.Data, &data); err != nil || data.InvoiceCode == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "invoice webhook missing code")
		}
		return data.InvoiceCode + ":" + data.Status, nil
	}
	return env.Event, nil
}

func (p *Processor) route(ctx context.Context, env envelope) error {
	switch env.Event {
	case "charge.success":
		return p.handleChargeSuccess(ctx, env.Data)
	case "charge.failed":
		return p.handleChargeFailed(ctx, env.Data)
	}
	switch {
	case strings.HasPrefix(env.Event, "subscription."):
		return p.handleSubscription(ctx, env.Data)
	case strings.HasPrefix(env.Event, "invoice."):
		return p.handleInvoice(ctx, env.Data)
	}
	p.logg.Info(p.logg.WithField(ctx, "event", env.Event), "unhandled webhook event")
	return nil
}

func (p *Processor) handleChargeSuccess(ctx context.Context, raw json.RawMessage) error {
	var data chargeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed charge payload")
	}

	event, err := p.payments.FindByGatewayReference(ctx, data.Reference)
	if err != nil {
		return err
	}
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("no payment event for gateway reference %s", data.Reference))
	}
	if event.Status == enums.PaymentStatusSucceeded {
		p.logg.Info(p.logg.WithField(ctx, "gateway_reference", data.Reference),
			"charge already confirmed, skipping")
		return nil
	}

	amount := data.Amount.DivRound(minorUnitFactor, 2)
	if !amount.IsPositive() {
		amount = event.Amount
	}
	processedAt := time.Now().UTC()
	if data.PaidAt != nil {
		processedAt = data.PaidAt.UTC()
	}

	return p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := p.payments.ConfirmChargeTx(ctx, tx, payments.ConfirmInput{
			EventID:              event.ID,
			GatewayTransactionID: strconv.FormatInt(data.ID, 10),
			Amount:               amount,
			Currency:             event.Currency,
			ProcessedAt:          processedAt,
		})
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}

		if _, err := p.wallet.CreditTx(ctx, tx, wallets.MutationInput{
			TenantID:    event.TenantID,
			UserID:      &event.UserID,
			Amount:      amount,
			ReferenceID: &event.ID,
			Description: "Paystack top-up",
		}); err != nil {
			return err
		}

		return p.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSucceeded,
			AggregateType: enums.AggregatePaymentEvent,
			AggregateID:   event.ID,
			Data: payloads.PaymentSucceededEvent{
				PaymentEventID:   event.ID,
				TenantID:         event.TenantID,
				UserID:           event.UserID,
				GatewayReference: event.GatewayReference,
				Amount:           amount,
				Currency:         event.Currency,
				ProcessedAt:      processedAt,
			},
			Version: 1,
		})
	})
}

func (p *Processor) handleChargeFailed(ctx context.Context, raw json.RawMessage) error {
	var data chargeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed charge payload")
	}

	event, err := p.payments.FindByGatewayReference(ctx, data.Reference)
	if err != nil {
		return err
	}
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("no payment event for gateway reference %s", data.Reference))
	}

	return p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return p.payments.MarkFailedTx(ctx, tx, event.ID)
	})
}

func (p *Processor) handleSubscription(ctx context.Context, raw json.RawMessage) error {
	var data subscriptionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed subscription payload")
	}

	input := billing.SubscriptionUpsert{
		PlanCode:                data.Plan.PlanCode,
		GatewaySubscriptionCode: data.SubscriptionCode,
		GatewayCustomerCode:     data.Customer.CustomerCode,
		Status:                  data.Status,
		CurrentPeriodStart:      data.CreatedAt,
		CurrentPeriodEnd:        data.NextPaymentDate,
	}
	if tenantID, err := uuid.Parse(data.Customer.Metadata.TenantID); err == nil {
		input.TenantID = tenantID
	}
	if userID, err := uuid.Parse(data.Customer.Metadata.UserID); err == nil {
		input.UserID = &userID
	}

	_, err := p.billing.UpsertSubscription(ctx, input)
	return err
}

func (p *Processor) handleInvoice(ctx context.Context, raw json.RawMessage) error {
	var data invoiceData
	if err := json.Unmarshal(raw, &data); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed invoice payload")
	}

	currency := enums.CurrencyKES
	if parsed, err := enums.ParseCurrency(data.Currency); err == nil {
		currency = parsed
	}
	input := billing.InvoiceUpsert{
		GatewayInvoiceID: data.InvoiceCode,
		SubscriptionCode: data.Subscription.SubscriptionCode,
		Amount:           data.Amount.DivRound(minorUnitFactor, 2),
		Currency:         currency,
		Status:           data.Status,
		DueDate:          data.DueDate,
	}
	if tenantID, err := uuid.Parse(data.Customer.Metadata.TenantID); err == nil {
		input.TenantID = tenantID
	}

	_, err := p.billing.UpsertInvoice(ctx, input)
	return err
}
