package wallets

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/internal/tenants"
	"github.com/sautihq/sauti-backend/pkg/config"
	"github.com/sautihq/sauti-backend/pkg/db"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
	"github.com/sautihq/sauti-backend/pkg/outbox"
	"github.com/sautihq/sauti-backend/pkg/outbox/payloads"
	"github.com/sautihq/sauti-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// MutationInput carries one credit or debit request.
type MutationInput struct {
	TenantID    uuid.UUID
	UserID      *uuid.UUID
	Amount      decimal.Decimal
	ReferenceID *uuid.UUID
	Description string
}

// HistoryPage is a cursor page of wallet transactions, newest first.
type HistoryPage struct {
	Items      []models.WalletTransaction
	NextCursor string
}

// Service owns wallet balance mutation. All balance changes go through
// Credit/Debit; nothing else writes wallet rows.
type Service interface {
	GetOrCreateWallet(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID) (*models.Wallet, error)
	Credit(ctx context.Context, input MutationInput) (*models.Wallet, error)
	Debit(ctx context.Context, input MutationInput) (*models.Wallet, error)
	CreditTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.Wallet, error)
	DebitTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.Wallet, error)
	Balance(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID) (*models.Wallet, error)
	History(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, params pagination.Params) (*HistoryPage, error)
	MigrateWalletToEnterprise(ctx context.Context, userID, newTenantID uuid.UUID) (*models.Wallet, error)
}

type service struct {
	tx        txRunner
	repo      Repository
	directory tenants.Directory
	outbox    outboxPublisher
	logg      *logger.Logger
	currency  enums.Currency
}

// NewService wires the wallet service.
func NewService(
	tx txRunner,
	repo Repository,
	directory tenants.Directory,
	publisher outboxPublisher,
	logg *logger.Logger,
	cfg config.WalletConfig,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if directory == nil {
		return nil, fmt.Errorf("tenant directory required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	currency, err := enums.ParseCurrency(cfg.DefaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("default currency: %w", err)
	}
	return &service{
		tx:        tx,
		repo:      repo,
		directory: directory,
		outbox:    publisher,
		logg:      logg,
		currency:  currency,
	}, nil
}

// resolveScope decides whether the wallet is user-scoped or shared across
// the tenant. Only users inside the individual workspace get their own
// wallet; enterprise tenants share one.
func (s *service) resolveScope(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID) (*uuid.UUID, error) {
	if userID == nil || *userID == uuid.Nil {
		return nil, nil
	}
	individual, err := s.directory.IsIndividualTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !individual {
		return nil, nil
	}
	return userID, nil
}

func (s *service) GetOrCreateWallet(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		wallet, txErr = s.getOrCreateTx(ctx, tx, tenantID, userID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *service) getOrCreateTx(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, userID *uuid.UUID) (*models.Wallet, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	scopeUser, err := s.resolveScope(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.FindByScope(ctx, tenantID, scopeUser)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}

	created, err := repo.Create(ctx, &models.Wallet{
		TenantID: tenantID,
		UserID:   scopeUser,
		Balance:  decimal.Zero,
		Currency: s.currency,
	})
	if err == nil {
		return created, nil
	}
	// Another request created the wallet between the lookup and the insert.
	if db.IsUniqueViolation(err, "") {
		return repo.FindByScope(ctx, tenantID, scopeUser)
	}
	return nil, err
}

func (s *service) Credit(ctx context.Context, input MutationInput) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		wallet, txErr = s.CreditTx(ctx, tx, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *service) Debit(ctx context.Context, input MutationInput) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		wallet, txErr = s.DebitTx(ctx, tx, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// CreditTx applies a credit inside the caller's transaction. Exposed so
// flows that couple a wallet movement with other writes (reward funding,
// webhook top-ups) stay atomic.
func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.Wallet, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	wallet, err := s.getOrCreateTx(ctx, tx, input.TenantID, input.UserID)
	if err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	if err := repo.AddBalance(ctx, wallet.ID, input.Amount); err != nil {
		return nil, err
	}
	if err := repo.CreateTransaction(ctx, &models.WalletTransaction{
		WalletID:    wallet.ID,
		Amount:      input.Amount,
		Type:        enums.WalletTransactionTypeCredit,
		ReferenceID: input.ReferenceID,
		Description: input.Description,
	}); err != nil {
		return nil, err
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventWalletCredited,
		AggregateType: enums.AggregateWallet,
		AggregateID:   wallet.ID,
		Data: payloads.WalletCreditedEvent{
			WalletID:    wallet.ID,
			TenantID:    wallet.TenantID,
			Amount:      input.Amount,
			Currency:    wallet.Currency,
			ReferenceID: input.ReferenceID,
			Description: input.Description,
		},
		Version: 1,
	}); err != nil {
		return nil, err
	}

	return repo.FindByID(ctx, wallet.ID)
}

// DebitTx applies a debit inside the caller's transaction. The decrement is
// guarded so the balance never goes negative under concurrent debits.
func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.Wallet, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	wallet, err := s.getOrCreateTx(ctx, tx, input.TenantID, input.UserID)
	if err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	applied, err := repo.SubtractBalanceGuarded(ctx, wallet.ID, input.Amount)
	if err != nil {
		return nil, err
	}
	if !applied {
		current, loadErr := repo.FindByID(ctx, wallet.ID)
		available := wallet.Balance
		if loadErr == nil {
			available = current.Balance
		}
		return nil, pkgerrors.New(
			pkgerrors.CodeInsufficientFunds,
			fmt.Sprintf("Insufficient funds. Required: %s, Available: %s",
				input.Amount.StringFixed(2), available.StringFixed(2)),
		)
	}

	if err := repo.CreateTransaction(ctx, &models.WalletTransaction{
		WalletID:    wallet.ID,
		Amount:      input.Amount,
		Type:        enums.WalletTransactionTypeDebit,
		ReferenceID: input.ReferenceID,
		Description: input.Description,
	}); err != nil {
		return nil, err
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventWalletDebited,
		AggregateType: enums.AggregateWallet,
		AggregateID:   wallet.ID,
		Data: payloads.WalletDebitedEvent{
			WalletID:    wallet.ID,
			TenantID:    wallet.TenantID,
			Amount:      input.Amount,
			Currency:    wallet.Currency,
			ReferenceID: input.ReferenceID,
			Description: input.Description,
		},
		Version: 1,
	}); err != nil {
		return nil, err
	}

	return repo.FindByID(ctx, wallet.ID)
}

func (s *service) Balance(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID) (*models.Wallet, error) {
	return s.GetOrCreateWallet(ctx, tenantID, userID)
}

func (s *service) History(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	wallet, err := s.GetOrCreateWallet(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	items, err := s.repo.ListTransactions(ctx, wallet.ID, limit+1, cursor)
	if err != nil {
		return nil, err
	}

	page := &HistoryPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

// MigrateWalletToEnterprise repoints a user-scoped wallet to be the new
// tenant's shared wallet. Callers serialize this against concurrent
// credits/debits on the same wallet; it runs once per account upgrade.
func (s *service) MigrateWalletToEnterprise(ctx context.Context, userID, newTenantID uuid.UUID) (*models.Wallet, error) {
	if userID == uuid.Nil || newTenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and tenant id required")
	}

	var wallet *models.Wallet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		userWallet, err := repo.FindUserWallet(ctx, userID)
		if err != nil {
			return err
		}
		if userWallet == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no wallet found for user")
		}

		existing, err := repo.FindByScope(ctx, newTenantID, nil)
		if err != nil {
			return err
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "tenant already has a shared wallet")
		}

		if err := repo.ReassignToTenant(ctx, userWallet.ID, newTenantID); err != nil {
			return err
		}
		wallet, err = repo.FindByID(ctx, userWallet.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"wallet_id": wallet.ID.String(),
		"tenant_id": newTenantID.String(),
	}), "wallet migrated to enterprise tenant")
	return wallet, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	return nil
}
