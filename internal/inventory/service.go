package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ProcurementClient buys stock from the upstream supplier. Restock only
// mutates the local pool after the supplier confirms the purchase.
type ProcurementClient interface {
	Purchase(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) error
}

// Service owns the system inventory pools and the two-phase
// reserve/commit/rollback discipline around disbursement.
type Service interface {
	Get(ctx context.Context, walletType enums.SystemWalletType) (*models.SystemWallet, error)
	Reserve(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) error
	Commit(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) error
	Rollback(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) error
	Restock(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) (*models.SystemWallet, error)
	ReserveTx(ctx context.Context, tx *gorm.DB, walletType enums.SystemWalletType, amount decimal.Decimal) error
	CommitTx(ctx context.Context, tx *gorm.DB, walletType enums.SystemWalletType, amount decimal.Decimal) error
	RollbackTx(ctx context.Context, tx *gorm.DB, walletType enums.SystemWalletType, amount decimal.Decimal) error
}

type service struct {
	tx          txRunner
	repo        Repository
	procurement ProcurementClient
	logg        *logger.Logger
}

// NewService wires the inventory service.
func NewService(tx txRunner, repo Repository, procurement ProcurementClient, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if procurement == nil {
		return nil, fmt.Errorf("procurement client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, repo: repo, procurement: procurement, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, walletType enums.SystemWalletType) (*models.SystemWallet, error) {
	if !walletType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid inventory type")
	}
	return s.repo.GetOrCreate(ctx, walletType)
}

func (s *service) Reserve(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ReserveTx(ctx, tx, walletType, amount)
	})
}

func (s *service) Commit(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.CommitTx(ctx, tx, walletType, amount)
	})
}

func (s *service) Rollback(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.RollbackTx(ctx, tx, walletType, amount)
	})
}

// ReserveTx earmarks stock inside the caller's transaction so reward
// funding debits and reservations land atomically.
func (s *service) ReserveTx(ctx context.Context, tx *gorm.DB, walletType enums.SystemWalletType, amount decimal.Decimal) error {
	if err := validateRequest(walletType, amount); err != nil {
		return err
	}

	repo := s.repo.WithTx(tx)
	if _, err := repo.GetOrCreate(ctx, walletType); err != nil {
		return err
	}

	applied, err := repo.ReserveGuarded(ctx, walletType, amount)
	if err != nil {
		return err
	}
	if !applied {
		wallet, loadErr := repo.FindByType(ctx, walletType)
		available := decimal.Zero
		if loadErr == nil && wallet != nil {
			available = wallet.Available()
		}
		return pkgerrors.New(
			pkgerrors.CodeInsufficientInventory,
			fmt.Sprintf("Insufficient %s inventory. Required: %s, Available: %s",
				walletType, amount.StringFixed(2), available.StringFixed(2)),
		)
	}
	return nil
}

func (s *service) CommitTx(ctx context.Context, tx *gorm.DB, walletType enums.SystemWalletType, amount decimal.Decimal) error {
	if err := validateRequest(walletType, amount); err != nil {
		return err
	}
	applied, err := s.repo.WithTx(tx).CommitGuarded(ctx, walletType, amount)
	if err != nil {
		return err
	}
	if !applied {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "commit exceeds reserved inventory")
	}
	return nil
}

func (s *service) RollbackTx(ctx context.Context, tx *gorm.DB, walletType enums.SystemWalletType, amount decimal.Decimal) error {
	if err := validateRequest(walletType, amount); err != nil {
		return err
	}
	applied, err := s.repo.WithTx(tx).ReleaseGuarded(ctx, walletType, amount)
	if err != nil {
		return err
	}
	if !applied {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "rollback exceeds reserved inventory")
	}
	return nil
}

// Restock purchases stock from the supplier and records it. A failed
// purchase leaves the local pool untouched.
func (s *service) Restock(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) (*models.SystemWallet, error) {
	if err := validateRequest(walletType, amount); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetOrCreate(ctx, walletType); err != nil {
		return nil, err
	}

	if err := s.procurement.Purchase(ctx, walletType, amount); err != nil {
		s.logg.Error(ctx, "inventory procurement failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inventory procurement failed")
	}

	if err := s.repo.AddStock(ctx, walletType, amount); err != nil {
		return nil, err
	}

	wallet, err := s.repo.FindByType(ctx, walletType)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "wallet_type", walletType.String()), "inventory restocked")
	return wallet, nil
}

func validateRequest(walletType enums.SystemWalletType, amount decimal.Decimal) error {
	if !walletType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid inventory type")
	}
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	return nil
}
