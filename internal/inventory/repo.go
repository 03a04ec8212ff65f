package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
)

// Repository persists the platform-owned inventory pools. All balance
// mutations are single-statement conditional updates so the
// 0 <= reserved <= current invariant holds under concurrency.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByType(ctx context.Context, walletType enums.SystemWalletType) (*models.SystemWallet, error)
	GetOrCreate(ctx context.Context, walletType enums.SystemWalletType) (*models.SystemWallet, error)
	ReserveGuarded(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) (bool, error)
	CommitGuarded(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) (bool, error)
	ReleaseGuarded(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) (bool, error)
	AddStock(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByType(ctx context.Context, walletType enums.SystemWalletType) (*models.SystemWallet, error) {
	var wallet models.SystemWallet
	err := r.db.WithContext(ctx).Where("wallet_type = ?", walletType).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) GetOrCreate(ctx context.Context, walletType enums.SystemWalletType) (*models.SystemWallet, error) {
	wallet, err := r.FindByType(ctx, walletType)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}

	created := &models.SystemWallet{
		ID:              uuid.New(),
		WalletType:      walletType,
		CurrentBalance:  decimal.Zero,
		ReservedBalance: decimal.Zero,
	}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		// Concurrent creation of the single row per type.
		existing, findErr := r.FindByType(ctx, walletType)
		if findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return created, nil
}

// ReserveGuarded earmarks stock for in-flight disbursement. Fails without
// mutation when the available pool (current - reserved) is short.
func (r *repository) ReserveGuarded(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SystemWallet{}).
		Where("wallet_type = ? AND current_balance >= reserved_balance + ?", walletType, amount).
		Updates(map[string]interface{}{
			"reserved_balance": gorm.Expr("reserved_balance + ?", amount),
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CommitGuarded consumes previously reserved stock: both reserved and
// current drop together.
func (r *repository) CommitGuarded(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SystemWallet{}).
		Where("wallet_type = ? AND reserved_balance >= ? AND current_balance >= ?", walletType, amount, amount).
		Updates(map[string]interface{}{
			"reserved_balance": gorm.Expr("reserved_balance - ?", amount),
			"current_balance":  gorm.Expr("current_balance - ?", amount),
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseGuarded returns reserved stock to the available pool.
func (r *repository) ReleaseGuarded(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SystemWallet{}).
		Where("wallet_type = ? AND reserved_balance >= ?", walletType, amount).
		Updates(map[string]interface{}{
			"reserved_balance": gorm.Expr("reserved_balance - ?", amount),
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) AddStock(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.SystemWallet{}).
		Where("wallet_type = ?", walletType).
		Updates(map[string]interface{}{
			"current_balance": gorm.Expr("current_balance + ?", amount),
			"updated_at":      time.Now().UTC(),
		}).Error
}
