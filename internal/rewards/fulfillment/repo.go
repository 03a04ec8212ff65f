package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	"github.com/sautihq/sauti-backend/pkg/pagination"
)

// Repository persists disbursement attempts. Rows are created PENDING and
// finalized exactly once to SUCCESS or FAILED.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePending(ctx context.Context, txn *models.RewardTransaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.RewardTransaction, error)
	FindLiveClaim(ctx context.Context, rewardID, participantID uuid.UUID) (*models.RewardTransaction, error)
	MarkSuccess(ctx context.Context, id uuid.UUID, providerTransactionID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	ListByReward(ctx context.Context, rewardID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.RewardTransaction, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.RewardTransaction, error)
	CountSuccessByReward(ctx context.Context, rewardID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reward transaction repository bound to the DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePending(ctx context.Context, txn *models.RewardTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	txn.Status = enums.RewardTransactionStatusPending
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RewardTransaction, error) {
	var txn models.RewardTransaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// FindLiveClaim returns the participant's non-FAILED transaction for the
// reward, if any. A FAILED attempt does not block a retry.
func (r *repository) FindLiveClaim(ctx context.Context, rewardID, participantID uuid.UUID) (*models.RewardTransaction, error) {
	var txn models.RewardTransaction
	err := r.db.WithContext(ctx).
		Where("reward_id = ? AND participant_id = ? AND status <> ?",
			rewardID, participantID, enums.RewardTransactionStatusFailed).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) MarkSuccess(ctx context.Context, id uuid.UUID, providerTransactionID string) error {
	updates := map[string]interface{}{
		"status":     enums.RewardTransactionStatusSuccess,
		"updated_at": time.Now().UTC(),
	}
	if providerTransactionID != "" {
		updates["provider_transaction_id"] = providerTransactionID
	}
	return r.db.WithContext(ctx).
		Model(&models.RewardTransaction{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.RewardTransaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         enums.RewardTransactionStatusFailed,
			"failure_reason": reason,
			"updated_at":     time.Now().UTC(),
		}).Error
}

func (r *repository) ListByReward(ctx context.Context, rewardID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.RewardTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("reward_id = ?", rewardID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var txns []models.RewardTransaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.RewardTransaction, error) {
	var txns []models.RewardTransaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.RewardTransactionStatusPending, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) CountSuccessByReward(ctx context.Context, rewardID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RewardTransaction{}).
		Where("reward_id = ? AND status = ?", rewardID, enums.RewardTransactionStatusSuccess).
		Count(&count).Error
	return count, err
}
