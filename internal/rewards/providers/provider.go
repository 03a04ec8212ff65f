package providers

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
)

// Result is what a provider reports back after a disbursement attempt.
type Result struct {
	ProviderTransactionID string
}

// Provider turns "pay participant X" into a provider-specific disbursement.
// Implementations perform their own I/O; callers never hold a database
// transaction across Disburse.
type Provider interface {
	Name() string
	Supports(rewardType enums.RewardType) bool
	Disburse(ctx context.Context, reward *models.Reward, txn *models.RewardTransaction) (*Result, error)
}

// TxProvider marks providers whose payout is a local database write rather
// than external I/O. The engine calls DisburseTx inside the finalization
// transaction so the payout and the accounting commit or roll back together.
type TxProvider interface {
	Provider
	DisburseTx(ctx context.Context, tx *gorm.DB, reward *models.Reward, txn *models.RewardTransaction) (*Result, error)
}

// Registry selects the provider for a reward type. Registration fails when
// two providers claim the same type so misconfiguration surfaces at boot,
// not at disbursement time.
type Registry struct {
	providers []Provider
}

// NewRegistry builds a registry over the given providers.
func NewRegistry(providers ...Provider) (*Registry, error) {
	for _, rewardType := range enums.RewardTypes {
		matches := 0
		for _, p := range providers {
			if p.Supports(rewardType) {
				matches++
			}
		}
		if matches > 1 {
			return nil, fmt.Errorf("multiple providers registered for reward type %s", rewardType)
		}
	}
	return &Registry{providers: providers}, nil
}

// Resolve returns the provider that handles the reward type.
func (r *Registry) Resolve(rewardType enums.RewardType) (Provider, error) {
	for _, p := range r.providers {
		if p.Supports(rewardType) {
			return p, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal,
		fmt.Sprintf("no disbursement provider registered for reward type %s", rewardType))
}
