package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/internal/rewards"
	"github.com/sautihq/sauti-backend/internal/rewards/providers"
	"github.com/sautihq/sauti-backend/internal/surveys"
	"github.com/sautihq/sauti-backend/pkg/db"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
	"github.com/sautihq/sauti-backend/pkg/metrics"
	"github.com/sautihq/sauti-backend/pkg/outbox"
	"github.com/sautihq/sauti-backend/pkg/outbox/payloads"
	"github.com/sautihq/sauti-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type providerResolver interface {
	Resolve(rewardType enums.RewardType) (providers.Provider, error)
}

type inventoryCommitter interface {
	CommitTx(ctx context.Context, tx *gorm.DB, walletType enums.SystemWalletType, amount decimal.Decimal) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// DisburseInput triggers one payout attempt for a participant.
type DisburseInput struct {
	RewardID            uuid.UUID
	ParticipantID       uuid.UUID
	RecipientIdentifier string
}

// ClaimInput is the participant-facing entry point: a claim against the
// survey they completed.
type ClaimInput struct {
	TenantID            uuid.UUID
	SurveyID            uuid.UUID
	ParticipantID       uuid.UUID
	RecipientIdentifier string
}

// ListPage is a cursor page of disbursement attempts, newest first.
type ListPage struct {
	Items      []models.RewardTransaction
	NextCursor string
}

// Service is the disbursement engine. External provider I/O happens outside
// any database transaction, with outcomes finalized in a fresh transactional
// scope keyed by the reward transaction id; ledger-backed providers run
// payout and finalization in one transaction.
type Service interface {
	Disburse(ctx context.Context, input DisburseInput) (*models.RewardTransaction, error)
	Claim(ctx context.Context, input ClaimInput) (*models.RewardTransaction, error)
	ListByReward(ctx context.Context, tenantID, rewardID uuid.UUID, params pagination.Params) (*ListPage, error)
}

type service struct {
	tx        txRunner
	repo      Repository
	rewards   rewards.Repository
	registry  providerResolver
	inventory inventoryCommitter
	surveys   surveys.Platform
	outbox    outboxPublisher
	metrics   *metrics.DisbursementMetrics
	logg      *logger.Logger
}

// NewService wires the disbursement engine.
func NewService(
	tx txRunner,
	repo Repository,
	rewardsRepo rewards.Repository,
	registry providerResolver,
	inventory inventoryCommitter,
	platform surveys.Platform,
	publisher outboxPublisher,
	disbursementMetrics *metrics.DisbursementMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("fulfillment repository required")
	}
	if rewardsRepo == nil {
		return nil, fmt.Errorf("rewards repository required")
	}
	if registry == nil {
		return nil, fmt.Errorf("provider registry required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if platform == nil {
		return nil, fmt.Errorf("survey platform required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if disbursementMetrics == nil {
		disbursementMetrics = metrics.NewDisbursementMetrics(nil)
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:        tx,
		repo:      repo,
		rewards:   rewardsRepo,
		registry:  registry,
		inventory: inventory,
		surveys:   platform,
		outbox:    publisher,
		metrics:   disbursementMetrics,
		logg:      logg,
	}, nil
}

// Claim verifies the participant completed the survey, resolves the
// campaign, and runs a disbursement.
func (s *service) Claim(ctx context.Context, input ClaimInput) (*models.RewardTransaction, error) {
	if input.SurveyID == uuid.Nil || input.ParticipantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "survey id and participant id required")
	}

	completed, err := s.surveys.ResponseExists(ctx, input.SurveyID, input.ParticipantID)
	if err != nil {
		return nil, err
	}
	if !completed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "participant has not completed the survey")
	}

	reward, err := s.rewards.FindByTenantAndSurvey(ctx, input.TenantID, input.SurveyID)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no reward campaign for survey")
	}

	return s.Disburse(ctx, DisburseInput{
		RewardID:            reward.ID,
		ParticipantID:       input.ParticipantID,
		RecipientIdentifier: input.RecipientIdentifier,
	})
}

func (s *service) Disburse(ctx context.Context, input DisburseInput) (*models.RewardTransaction, error) {
	if input.RewardID == uuid.Nil || input.ParticipantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward id and participant id required")
	}
	if input.RecipientIdentifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient identifier required")
	}

	ctx = s.logg.WithRewardID(ctx, input.RewardID.String())

	// Fail fast before creating any transaction row.
	reward, err := s.rewards.FindByID(ctx, input.RewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reward not found")
	}
	if reward.Status != enums.RewardStatusActive || reward.RemainingRewards <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "reward depleted")
	}

	existing, err := s.repo.FindLiveClaim(ctx, reward.ID, input.ParticipantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, pkgerrors.New(pkgerrors.CodeConflict, "reward already claimed")
	}

	txn := &models.RewardTransaction{
		RewardID:            reward.ID,
		ParticipantID:       input.ParticipantID,
		RecipientIdentifier: input.RecipientIdentifier,
		Amount:              reward.AmountPerRecipient,
		Currency:            reward.Currency,
	}
	if err := s.repo.CreatePending(ctx, txn); err != nil {
		// Lost the race to a concurrent claim by the same participant.
		if db.IsUniqueViolation(err, "idx_reward_transactions_live_claim") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "reward already claimed")
		}
		return nil, err
	}

	s.metrics.IncAttempt(reward.RewardType.String())

	provider, err := s.registry.Resolve(reward.RewardType)
	if err != nil {
		// No provider claims this type. The transaction stays PENDING and
		// operators are alerted; dropping it silently would lose the claim.
		s.logg.Error(ctx, "no provider for reward type", err)
		s.alertUnroutable(ctx, reward, txn)
		return txn, err
	}

	if local, ok := provider.(providers.TxProvider); ok {
		return s.disburseLocal(ctx, reward, txn.ID, local)
	}

	result, providerErr := provider.Disburse(ctx, reward, txn)
	return s.processOutcome(ctx, reward, txn.ID, result, providerErr)
}

// disburseLocal handles providers whose payout is a database write. The
// payout, the SUCCESS mark, and the slot decrement run in one transaction:
// either all of it lands or none of it does, so no sweep or operator repair
// can ever be needed for these reward types. The decrement comes first so a
// depleted campaign is refused before any points move.
func (s *service) disburseLocal(
	ctx context.Context,
	reward *models.Reward,
	txnID uuid.UUID,
	provider providers.TxProvider,
) (*models.RewardTransaction, error) {
	var (
		final       *models.RewardTransaction
		providerErr error
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rewardsRepo := s.rewards.WithTx(tx)

		txn, err := repo.FindByID(ctx, txnID)
		if err != nil {
			return err
		}
		if txn == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reward transaction not found")
		}

		decremented, err := rewardsRepo.DecrementRemainingGuarded(ctx, reward.ID)
		if err != nil {
			return err
		}
		if !decremented {
			if err := repo.MarkFailed(ctx, txn.ID, "reward depleted"); err != nil {
				return err
			}
			s.metrics.IncFailure(reward.RewardType.String())
			if err := s.emitFailure(ctx, tx, reward, txn, "reward depleted"); err != nil {
				return err
			}
			final, err = repo.FindByID(ctx, txn.ID)
			return err
		}

		result, err := provider.DisburseTx(ctx, tx, reward, txn)
		if err != nil {
			providerErr = err
			return err
		}

		providerRef := ""
		if result != nil {
			providerRef = result.ProviderTransactionID
		}
		if err := repo.MarkSuccess(ctx, txn.ID, providerRef); err != nil {
			return err
		}

		if err := s.finalizeDepletion(ctx, tx, rewardsRepo, reward); err != nil {
			return err
		}

		s.metrics.IncSuccess(reward.RewardType.String())
		if err := s.emitDisbursed(ctx, tx, reward, txn, providerRef); err != nil {
			return err
		}

		final, err = repo.FindByID(ctx, txn.ID)
		return err
	})
	if err != nil {
		if providerErr != nil {
			// The rollback undid the decrement and any partial credit;
			// record the failed attempt in a scope of its own.
			return s.processOutcome(ctx, reward, txnID, nil, providerErr)
		}
		return nil, err
	}
	return final, nil
}

// processOutcome finalizes a disbursement attempt in its own transactional
// scope. The reward decrement is the last accounting step, after confirmed
// provider success; a crash before it leaves a SUCCESS transaction whose
// reward was not decremented, which the reconciliation sweep repairs.
func (s *service) processOutcome(
	ctx context.Context,
	reward *models.Reward,
	txnID uuid.UUID,
	result *providers.Result,
	providerErr error,
) (*models.RewardTransaction, error) {
	var final *models.RewardTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rewardsRepo := s.rewards.WithTx(tx)

		txn, err := repo.FindByID(ctx, txnID)
		if err != nil {
			return err
		}
		if txn == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reward transaction not found")
		}

		if providerErr != nil {
			if err := repo.MarkFailed(ctx, txn.ID, providerErr.Error()); err != nil {
				return err
			}
			s.metrics.IncFailure(reward.RewardType.String())
			if err := s.emitFailure(ctx, tx, reward, txn, providerErr.Error()); err != nil {
				return err
			}
			final, err = repo.FindByID(ctx, txn.ID)
			return err
		}

		providerRef := ""
		if result != nil {
			providerRef = result.ProviderTransactionID
		}
		if err := repo.MarkSuccess(ctx, txn.ID, providerRef); err != nil {
			return err
		}

		decremented, err := rewardsRepo.DecrementRemainingGuarded(ctx, reward.ID)
		if err != nil {
			return err
		}
		if !decremented {
			// The provider paid but a concurrent disbursement consumed the
			// last slot. Recorded as FAILED so accounting never exceeds the
			// campaign budget; the payout itself is flagged for operators.
			s.logg.Warn(ctx, "disbursement paid against a depleted reward")
			if err := repo.MarkFailed(ctx, txn.ID, "reward depleted"); err != nil {
				return err
			}
			s.metrics.IncFailure(reward.RewardType.String())
			if err := s.emitFailure(ctx, tx, reward, txn, "reward depleted"); err != nil {
				return err
			}
			final, err = repo.FindByID(ctx, txn.ID)
			return err
		}

		if walletType, ok := reward.RewardType.SystemWalletType(); ok {
			if err := s.inventory.CommitTx(ctx, tx, walletType, txn.Amount); err != nil {
				return err
			}
		}

		if err := s.finalizeDepletion(ctx, tx, rewardsRepo, reward); err != nil {
			return err
		}

		s.metrics.IncSuccess(reward.RewardType.String())
		if err := s.emitDisbursed(ctx, tx, reward, txn, providerRef); err != nil {
			return err
		}

		final, err = repo.FindByID(ctx, txn.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return final, nil
}

// finalizeDepletion flips the campaign to DEPLETED when the last slot just
// went, announcing it once.
func (s *service) finalizeDepletion(ctx context.Context, tx *gorm.DB, rewardsRepo rewards.Repository, reward *models.Reward) error {
	depleted, err := rewardsRepo.MarkDepletedIfExhausted(ctx, reward.ID)
	if err != nil {
		return err
	}
	if !depleted {
		return nil
	}
	s.metrics.IncDepleted()
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRewardDepleted,
		AggregateType: enums.AggregateReward,
		AggregateID:   reward.ID,
		Data: payloads.RewardDepletedEvent{
			RewardID:   reward.ID,
			TenantID:   reward.TenantID,
			SurveyID:   reward.SurveyID,
			DepletedAt: time.Now().UTC(),
		},
		Version: 1,
	})
}

func (s *service) emitDisbursed(ctx context.Context, tx *gorm.DB, reward *models.Reward, txn *models.RewardTransaction, providerRef string) error {
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRewardDisbursed,
		AggregateType: enums.AggregateRewardTransaction,
		AggregateID:   txn.ID,
		Data: payloads.RewardDisbursedEvent{
			RewardTransactionID:   txn.ID,
			RewardID:              reward.ID,
			ParticipantID:         txn.ParticipantID,
			RewardType:            reward.RewardType,
			Amount:                txn.Amount,
			Currency:              txn.Currency,
			ProviderTransactionID: providerRef,
		},
		Version: 1,
	}); err != nil {
		return err
	}
	return s.emitSMS(ctx, tx, reward, txn,
		fmt.Sprintf("You have received %s %s for completing a survey. Thank you!",
			txn.Currency, txn.Amount.StringFixed(2)))
}

func (s *service) emitFailure(ctx context.Context, tx *gorm.DB, reward *models.Reward, txn *models.RewardTransaction, reason string) error {
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDisbursementFailed,
		AggregateType: enums.AggregateRewardTransaction,
		AggregateID:   txn.ID,
		Data: payloads.DisbursementFailedEvent{
			RewardTransactionID: txn.ID,
			RewardID:            reward.ID,
			ParticipantID:       txn.ParticipantID,
			Reason:              reason,
		},
		Version: 1,
	}); err != nil {
		return err
	}
	return s.emitSMS(ctx, tx, reward, txn,
		"We could not deliver your survey reward. Please contact support.")
}

// emitSMS queues a text for phone-deliverable rewards. Loyalty recipients
// are user ids, not phone numbers.
func (s *service) emitSMS(ctx context.Context, tx *gorm.DB, reward *models.Reward, txn *models.RewardTransaction, message string) error {
	if _, ok := reward.RewardType.SystemWalletType(); !ok {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSMSRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   txn.ID,
		Data: payloads.SMSRequestedEvent{
			PhoneNumber: txn.RecipientIdentifier,
			Message:     message,
			ReferenceID: txn.ID,
		},
		Version: 1,
	})
}

func (s *service) alertUnroutable(ctx context.Context, reward *models.Reward, txn *models.RewardTransaction) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   txn.ID,
			Data: payloads.NotificationRequestedEvent{
				TenantID: reward.TenantID,
				Type:     "disbursement_unroutable",
				Subject:  "Reward transaction stuck in PENDING",
				Body: fmt.Sprintf("No provider supports reward type %s; transaction %s needs manual resolution.",
					reward.RewardType, txn.ID),
			},
			Version: 1,
		})
	})
	if err != nil {
		s.logg.Error(ctx, "emitting unroutable disbursement alert", err)
	}
}

func (s *service) ListByReward(ctx context.Context, tenantID, rewardID uuid.UUID, params pagination.Params) (*ListPage, error) {
	reward, err := s.rewards.FindByID(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil || reward.TenantID != tenantID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reward not found")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	items, err := s.repo.ListByReward(ctx, rewardID, limit+1, cursor)
	if err != nil {
		return nil, err
	}

	page := &ListPage{Items: items}
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
