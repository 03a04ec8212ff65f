package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

// SubscriptionUpsert is a gateway subscription snapshot. Status carries the
// gateway's lowercase vocabulary; unknown values skip the upsert.
type SubscriptionUpsert struct {
	TenantID                uuid.UUID
	UserID                  *uuid.UUID
	PlanCode                string
	GatewaySubscriptionCode string
	GatewayCustomerCode     string
	Status                  string
	CurrentPeriodStart      *time.Time
	CurrentPeriodEnd        *time.Time
}

// InvoiceUpsert is a gateway invoice snapshot.
type InvoiceUpsert struct {
	TenantID         uuid.UUID
	GatewayInvoiceID string
	SubscriptionCode string
	Amount           decimal.Decimal
	Currency         enums.Currency
	Status           string
	DueDate          *time.Time
	InvoiceURL       *string
}

// Service reconciles webhook subscription and invoice payloads into local
// mirrors keyed by the gateway identifiers.
type Service interface {
	UpsertSubscription(ctx context.Context, input SubscriptionUpsert) (*models.Subscription, error)
	UpsertInvoice(ctx context.Context, input InvoiceUpsert) (*models.Invoice, error)
	ListSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]models.Subscription, error)
	ListInvoices(ctx context.Context, tenantID uuid.UUID) ([]models.Invoice, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the billing service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("billing repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) UpsertSubscription(ctx context.Context, input SubscriptionUpsert) (*models.Subscription, error) {
	if input.GatewaySubscriptionCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway subscription code is required")
	}
	status, err := enums.ParseSubscriptionStatus(input.Status)
	if err != nil {
		// Unknown gateway vocabulary is skipped, not failed, so a new
		// gateway state never wedges the webhook pipeline.
		s.logg.Warn(s.logg.WithField(ctx, "status", input.Status),
			"unknown subscription status, skipping upsert")
		return nil, nil
	}

	existing, err := s.repo.FindSubscriptionByCode(ctx, input.GatewaySubscriptionCode)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		if input.TenantID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant is required for a new subscription")
		}
		return s.repo.CreateSubscription(ctx, &models.Subscription{
			TenantID:                input.TenantID,
			UserID:                  input.UserID,
			PlanCode:                input.PlanCode,
			GatewaySubscriptionCode: input.GatewaySubscriptionCode,
			GatewayCustomerCode:     input.GatewayCustomerCode,
			Status:                  status,
			CurrentPeriodStart:      input.CurrentPeriodStart,
			CurrentPeriodEnd:        input.CurrentPeriodEnd,
		})
	}

	existing.Status = status
	if input.PlanCode != "" {
		existing.PlanCode = input.PlanCode
	}
	if input.CurrentPeriodStart != nil {
		existing.CurrentPeriodStart = input.CurrentPeriodStart
	}
	if input.CurrentPeriodEnd != nil {
		existing.CurrentPeriodEnd = input.CurrentPeriodEnd
	}
	if err := s.repo.UpdateSubscription(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *service) UpsertInvoice(ctx context.Context, input InvoiceUpsert) (*models.Invoice, error) {
	if input.GatewayInvoiceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway invoice id is required")
	}
	status, err := enums.ParseInvoiceStatus(input.Status)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "status", input.Status),
			"unknown invoice status, skipping upsert")
		return nil, nil
	}

	var subscriptionID *uuid.UUID
	if input.SubscriptionCode != "" {
		sub, err := s.repo.FindSubscriptionByCode(ctx, input.SubscriptionCode)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			subscriptionID = &sub.ID
		}
	}

	existing, err := s.repo.FindInvoiceByGatewayID(ctx, input.GatewayInvoiceID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		if input.TenantID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant is required for a new invoice")
		}
		currency := input.Currency
		if currency == "" {
			currency = enums.CurrencyKES
		}
		return s.repo.CreateInvoice(ctx, &models.Invoice{
			TenantID:         input.TenantID,
			SubscriptionID:   subscriptionID,
			GatewayInvoiceID: input.GatewayInvoiceID,
			Amount:           input.Amount,
			Currency:         currency,
			Status:           status,
			DueDate:          input.DueDate,
			InvoiceURL:       input.InvoiceURL,
		})
	}

	existing.Status = status
	if subscriptionID != nil {
		existing.SubscriptionID = subscriptionID
	}
	if input.Amount.IsPositive() {
		existing.Amount = input.Amount
	}
	if input.DueDate != nil {
		existing.DueDate = input.DueDate
	}
	if input.InvoiceURL != nil {
		existing.InvoiceURL = input.InvoiceURL
	}
	if err := s.repo.UpdateInvoice(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *service) ListSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]models.Subscription, error) {
	return s.repo.ListSubscriptionsByTenant(ctx, tenantID)
}

func (s *service) ListInvoices(ctx context.Context, tenantID uuid.UUID) ([]models.Invoice, error) {
	return s.repo.ListInvoicesByTenant(ctx, tenantID)
}
