package loyalty

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// MutationInput carries one points credit or debit.
type MutationInput struct {
	UserID              uuid.UUID
	Amount              decimal.Decimal
	Description         string
	RewardTransactionID *uuid.UUID
}

// HistoryPage is a cursor page of loyalty transactions, newest first.
type HistoryPage struct {
	Items      []models.LoyaltyTransaction
	NextCursor string
}

// Service is the points ledger. Reward disbursement credits it; users
// redeem points through Debit.
type Service interface {
	Balance(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error)
	Credit(ctx context.Context, input MutationInput) (*models.LoyaltyTransaction, error)
	CreditTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.LoyaltyTransaction, error)
	Debit(ctx context.Context, input MutationInput) (*models.LoyaltyTransaction, error)
	History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*HistoryPage, error)
}

type service struct {
	tx   txRunner
	repo Repository
}

// NewService wires the loyalty service.
func NewService(tx txRunner, repo Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("loyalty repository required")
	}
	return &service{tx: tx, repo: repo}, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.GetOrCreateAccount(ctx, userID)
}

func (s *service) Credit(ctx context.Context, input MutationInput) (*models.LoyaltyTransaction, error) {
	var txn *models.LoyaltyTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		txn, txErr = s.CreditTx(ctx, tx, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// CreditTx awards points inside the caller's transaction, creating the
// account on first use.
func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*models.LoyaltyTransaction, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	account, err := repo.GetOrCreateAccount(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if err := repo.AddBalance(ctx, account.ID, input.Amount); err != nil {
		return nil, err
	}

	txn := &models.LoyaltyTransaction{
		AccountID:           account.ID,
		Amount:              input.Amount,
		Type:                enums.LoyaltyTransactionTypeCredit,
		Description:         input.Description,
		RewardTransactionID: input.RewardTransactionID,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) Debit(ctx context.Context, input MutationInput) (*models.LoyaltyTransaction, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var txn *models.LoyaltyTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		account, err := repo.FindAccountByUser(ctx, input.UserID)
		if err != nil {
			return err
		}
		if account == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no loyalty account for user")
		}

		applied, err := repo.SubtractBalanceGuarded(ctx, account.ID, input.Amount)
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(
				pkgerrors.CodeInsufficientFunds,
				fmt.Sprintf("Insufficient points. Required: %s, Available: %s",
					input.Amount.StringFixed(2), account.Balance.StringFixed(2)),
			)
		}

		txn = &models.LoyaltyTransaction{
			AccountID:           account.ID,
			Amount:              input.Amount,
			Type:                enums.LoyaltyTransactionTypeDebit,
			Description:         input.Description,
			RewardTransactionID: input.RewardTransactionID,
		}
		return repo.CreateTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	account, err := s.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	items, err := s.repo.ListTransactions(ctx, account.ID, limit+1, cursor)
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

func validateInput(input MutationInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	return nil
}
