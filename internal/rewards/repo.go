package rewards

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

// Repository persists reward campaigns. Depletion accounting goes through
// guarded single-statement updates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reward *models.Reward) (*models.Reward, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reward, error)
	FindByTenantAndSurvey(ctx context.Context, tenantID, surveyID uuid.UUID) (*models.Reward, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Reward, error)
	ListActive(ctx context.Context, limit int) ([]models.Reward, error)
	DecrementRemainingGuarded(ctx context.Context, rewardID uuid.UUID) (bool, error)
	MarkDepletedIfExhausted(ctx context.Context, rewardID uuid.UUID) (bool, error)
	CancelGuarded(ctx context.Context, rewardID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a rewards repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reward *models.Reward) (*models.Reward, error) {
	if reward.ID == uuid.Nil {
		reward.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(reward).Error; err != nil {
		return nil, err
	}
	return reward, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	var reward models.Reward
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&reward).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

func (r *repository) FindByTenantAndSurvey(ctx context.Context, tenantID, surveyID uuid.UUID) (*models.Reward, error) {
	var reward models.Reward
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND survey_id = ?", tenantID, surveyID).
		First(&reward).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

func (r *repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Reward, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Reward
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListActive(ctx context.Context, limit int) ([]models.Reward, error) {
	var rows []models.Reward
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.RewardStatusActive).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DecrementRemainingGuarded consumes one reward slot. Zero rows affected
// means the campaign was concurrently depleted or is no longer active.
func (r *repository) DecrementRemainingGuarded(ctx context.Context, rewardID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Reward{}).
		Where("id = ? AND remaining_rewards > 0 AND status = ?", rewardID, enums.RewardStatusActive).
		Updates(map[string]interface{}{
			"remaining_rewards": gorm.Expr("remaining_rewards - 1"),
			"updated_at":        time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkDepletedIfExhausted flips status exactly when the last slot is gone.
func (r *repository) MarkDepletedIfExhausted(ctx context.Context, rewardID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Reward{}).
		Where("id = ? AND remaining_rewards = 0 AND status = ?", rewardID, enums.RewardStatusActive).
		Updates(map[string]interface{}{
			"status":     enums.RewardStatusDepleted,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CancelGuarded(ctx context.Context, rewardID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Reward{}).
		Where("id = ? AND status = ?", rewardID, enums.RewardStatusActive).
		Updates(map[string]interface{}{
			"status":     enums.RewardStatusCancelled,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
