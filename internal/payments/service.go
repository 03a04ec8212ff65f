package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/pkg/db"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
	"github.com/sautihq/sauti-backend/pkg/paystack"
)

type gatewayClient interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error)
}

// CreateInput starts a wallet top-up. The idempotency key is
// caller-supplied; retries with the same key within a tenant return the
// original event instead of charging twice.
type CreateInput struct {
	TenantID       uuid.UUID
	UserID         uuid.UUID
	Email          string
	SurveyID       *uuid.UUID
	IdempotencyKey string
	Amount         decimal.Decimal
	Currency       enums.Currency
}

// Intent is the outcome of payment initiation. AuthorizationURL is empty
// when an earlier attempt with the same idempotency key was returned.
type Intent struct {
	Event            *models.PaymentEvent
	AuthorizationURL string
}

// Service owns the payment event lifecycle from initiation through the
// confirmation recorded by the webhook pipeline.
type Service interface {
	CreatePaymentEvent(ctx context.Context, input CreateInput) (*Intent, error)
	Get(ctx context.Context, tenantID, eventID uuid.UUID) (*models.PaymentEvent, error)
	FindByGatewayReference(ctx context.Context, reference string) (*models.PaymentEvent, error)
	ConfirmChargeTx(ctx context.Context, tx *gorm.DB, input ConfirmInput) (bool, error)
	MarkFailedTx(ctx context.Context, tx *gorm.DB, eventID uuid.UUID) error
}

// ConfirmInput records a charge the gateway reported as successful.
type ConfirmInput struct {
	EventID              uuid.UUID
	GatewayTransactionID string
	Amount               decimal.Decimal
	Currency             enums.Currency
	ProcessedAt          time.Time
}

type service struct {
	repo    Repository
	gateway gatewayClient
	logg    *logger.Logger
}

// NewService wires the payments service.
func NewService(repo Repository, gateway gatewayClient, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, gateway: gateway, logg: logg}, nil
}

func (s *service) CreatePaymentEvent(ctx context.Context, input CreateInput) (*Intent, error) {
	if input.TenantID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and user are required")
	}
	if input.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if input.IdempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyKES
	}

	existing, err := s.repo.FindByTenantAndIdemKey(ctx, input.TenantID, input.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logg.Info(s.logg.WithField(ctx, "payment_event_id", existing.ID.String()),
			"idempotent payment initiation replay")
		return &Intent{Event: existing}, nil
	}

	reference := uuid.NewString()
	resp, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:     input.Email,
		Amount:    input.Amount,
		Currency:  currency.String(),
		Reference: reference,
	})
	if err != nil {
		return nil, err
	}
	if resp.Reference != "" {
		reference = resp.Reference
	}

	event, err := s.repo.Create(ctx, &models.PaymentEvent{
		TenantID:         input.TenantID,
		UserID:           input.UserID,
		Email:            input.Email,
		SurveyID:         input.SurveyID,
		IdempotencyKey:   input.IdempotencyKey,
		Gateway:          enums.PaymentGatewayPaystack,
		GatewayReference: reference,
		Amount:           input.Amount,
		Currency:         currency,
		Status:           enums.PaymentStatusPending,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			replay, findErr := s.repo.FindByTenantAndIdemKey(ctx, input.TenantID, input.IdempotencyKey)
			if findErr != nil {
				return nil, findErr
			}
			if replay != nil {
				return &Intent{Event: replay}, nil
			}
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payment_event_id":  event.ID.String(),
		"gateway_reference": reference,
	}), "payment initiated")

	return &Intent{Event: event, AuthorizationURL: resp.AuthorizationURL}, nil
}

func (s *service) Get(ctx context.Context, tenantID, eventID uuid.UUID) (*models.PaymentEvent, error) {
	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil || event.TenantID != tenantID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment event not found")
	}
	return event, nil
}

func (s *service) FindByGatewayReference(ctx context.Context, reference string) (*models.PaymentEvent, error) {
	return s.repo.FindByGatewayReference(ctx, reference)
}

// ConfirmChargeTx flips the event to SUCCEEDED and records the gateway
// transaction. Returns false without writing when an earlier delivery
// already confirmed it.
func (s *service) ConfirmChargeTx(ctx context.Context, tx *gorm.DB, input ConfirmInput) (bool, error) {
	repo := s.repo.WithTx(tx)

	applied, err := repo.MarkSucceededGuarded(ctx, input.EventID)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	processedAt := input.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyKES
	}
	if _, err := repo.CreateGatewayTransaction(ctx, &models.GatewayTransaction{
		PaymentEventID:       input.EventID,
		Type:                 enums.GatewayTransactionTypeCharge,
		Amount:               input.Amount,
		Currency:             currency,
		GatewayTransactionID: input.GatewayTransactionID,
		ProcessedAt:          processedAt,
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) MarkFailedTx(ctx context.Context, tx *gorm.DB, eventID uuid.UUID) error {
	return s.repo.WithTx(tx).MarkFailed(ctx, eventID)
}
