package loyalty

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/pagination"
)

// Repository persists loyalty accounts and their points ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAccountByUser(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error)
	GetOrCreateAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error)
	AddBalance(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error
	SubtractBalanceGuarded(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (bool, error)
	CreateTransaction(ctx context.Context, txn *models.LoyaltyTransaction) error
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.LoyaltyTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a loyalty repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAccountByUser(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) GetOrCreateAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	account, err := r.FindAccountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	created := &models.LoyaltyAccount{
		ID:      uuid.New(),
		UserID:  userID,
		Balance: decimal.Zero,
	}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		// Concurrent first credit for the same user.
		existing, findErr := r.FindAccountByUser(ctx, userID)
		if findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return created, nil
}

func (r *repository) AddBalance(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.LoyaltyAccount{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) SubtractBalanceGuarded(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LoyaltyAccount{}).
		Where("id = ? AND balance >= ?", accountID, amount).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.LoyaltyTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, accountID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.LoyaltyTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var txns []models.LoyaltyTransaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
