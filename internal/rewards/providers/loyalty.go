package providers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/internal/loyalty"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
)

type pointsLedger interface {
	CreditTx(ctx context.Context, tx *gorm.DB, input loyalty.MutationInput) (*models.LoyaltyTransaction, error)
}

type loyaltyProvider struct {
	ledger pointsLedger
}

// NewLoyaltyProvider builds the internal-ledger provider. The points credit
// is a local write, so it implements TxProvider and runs inside the
// engine's finalization transaction.
func NewLoyaltyProvider(ledger pointsLedger) (Provider, error) {
	if ledger == nil {
		return nil, fmt.Errorf("loyalty service required")
	}
	return &loyaltyProvider{ledger: ledger}, nil
}

func (p *loyaltyProvider) Name() string {
	return "loyalty"
}

func (p *loyaltyProvider) Supports(rewardType enums.RewardType) bool {
	return rewardType == enums.RewardTypeLoyaltyPoints
}

// Disburse exists to satisfy Provider; the engine always routes loyalty
// payouts through DisburseTx.
func (p *loyaltyProvider) Disburse(ctx context.Context, reward *models.Reward, txn *models.RewardTransaction) (*Result, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "loyalty payouts must run inside the finalization transaction")
}

func (p *loyaltyProvider) DisburseTx(ctx context.Context, tx *gorm.DB, reward *models.Reward, txn *models.RewardTransaction) (*Result, error) {
	recipient, err := uuid.Parse(txn.RecipientIdentifier)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loyalty recipient must be a user id")
	}

	credited, err := p.ledger.CreditTx(ctx, tx, loyalty.MutationInput{
		UserID:              recipient,
		Amount:              txn.Amount,
		Description:         "Survey reward points",
		RewardTransactionID: &txn.ID,
	})
	if err != nil {
		return nil, err
	}
	return &Result{ProviderTransactionID: credited.ID.String()}, nil
}
