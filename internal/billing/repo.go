package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/pkg/db/models"
)

// Repository persists the gateway's subscription and invoice mirrors.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindSubscriptionByCode(ctx context.Context, code string) (*models.Subscription, error)
	CreateSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub *models.Subscription) error
	FindInvoiceByGatewayID(ctx context.Context, gatewayInvoiceID string) (*models.Invoice, error)
	CreateInvoice(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error)
	UpdateInvoice(ctx context.Context, invoice *models.Invoice) error
	ListSubscriptionsByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Subscription, error)
	ListInvoicesByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Invoice, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a billing repository over the given connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindSubscriptionByCode(ctx context.Context, code string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).Where("gateway_subscription_code = ?", code).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) CreateSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *repository) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *repository) FindInvoiceByGatewayID(ctx context.Context, gatewayInvoiceID string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).Where("gateway_invoice_id = ?", gatewayInvoiceID).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) CreateInvoice(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *repository) UpdateInvoice(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}

func (r *repository) ListSubscriptionsByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repository) ListInvoicesByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}
