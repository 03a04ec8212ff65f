package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
)

// Repository persists payment events and the gateway transactions that
// confirm them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.PaymentEvent) (*models.PaymentEvent, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentEvent, error)
	FindByTenantAndIdemKey(ctx context.Context, tenantID uuid.UUID, idempotencyKey string) (*models.PaymentEvent, error)
	FindByGatewayReference(ctx context.Context, reference string) (*models.PaymentEvent, error)
	MarkSucceededGuarded(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) error
	CreateGatewayTransaction(ctx context.Context, txn *models.GatewayTransaction) (*models.GatewayTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository over the given connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.PaymentEvent) (*models.PaymentEvent, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repository) FindByTenantAndIdemKey(ctx context.Context, tenantID uuid.UUID, idempotencyKey string) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, idempotencyKey).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repository) FindByGatewayReference(ctx context.Context, reference string) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	err := r.db.WithContext(ctx).Where("gateway_reference = ?", reference).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// MarkSucceededGuarded flips the event to SUCCEEDED. Zero rows affected
// means another delivery already confirmed it.
func (r *repository) MarkSucceededGuarded(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("id = ? AND status <> ?", id, enums.PaymentStatusSucceeded).
		Updates(map[string]interface{}{
			"status":     enums.PaymentStatusSucceeded,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("id = ? AND status <> ?", id, enums.PaymentStatusSucceeded).
		Updates(map[string]interface{}{
			"status":     enums.PaymentStatusFailed,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) CreateGatewayTransaction(ctx context.Context, txn *models.GatewayTransaction) (*models.GatewayTransaction, error) {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}
