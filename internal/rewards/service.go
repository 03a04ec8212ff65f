package rewards

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/internal/surveys"
	"github.com/sautihq/sauti-backend/internal/wallets"
	"github.com/sautihq/sauti-backend/pkg/db"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
	"github.com/sautihq/sauti-backend/pkg/outbox"
	"github.com/sautihq/sauti-backend/pkg/outbox/payloads"
	"github.com/sautihq/sauti-backend/pkg/pagination"
)

// ProviderAirtime and ProviderLoyalty are the registry names campaigns are
// dispatched by.
const (
	ProviderAirtime = "africastalking"
	ProviderLoyalty = "loyalty"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type walletFunds interface {
	DebitTx(ctx context.Context, tx *gorm.DB, input wallets.MutationInput) (*models.Wallet, error)
	CreditTx(ctx context.Context, tx *gorm.DB, input wallets.MutationInput) (*models.Wallet, error)
}

type inventoryReserver interface {
	ReserveTx(ctx context.Context, tx *gorm.DB, walletType enums.SystemWalletType, amount decimal.Decimal) error
	RollbackTx(ctx context.Context, tx *gorm.DB, walletType enums.SystemWalletType, amount decimal.Decimal) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreateInput describes a new campaign. The full cost
// (amount per recipient x max recipients) is debited up front.
type CreateInput struct {
	TenantID           uuid.UUID
	SurveyID           uuid.UUID
	ActorUserID        *uuid.UUID
	RewardType         enums.RewardType
	AmountPerRecipient decimal.Decimal
	MaxRecipients      int
	Currency           enums.Currency
}

// ListPage is a cursor page of campaigns, newest first.
type ListPage struct {
	Items      []models.Reward
	NextCursor string
}

// Service owns the campaign lifecycle: funded creation, reads, and
// cancellation with refund.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Reward, error)
	Get(ctx context.Context, tenantID, rewardID uuid.UUID) (*models.Reward, error)
	GetBySurvey(ctx context.Context, tenantID, surveyID uuid.UUID) (*models.Reward, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (*ListPage, error)
	Cancel(ctx context.Context, tenantID, rewardID uuid.UUID) (*models.Reward, error)
}

type service struct {
	tx        txRunner
	repo      Repository
	wallet    walletFunds
	inventory inventoryReserver
	surveys   surveys.Platform
	outbox    outboxPublisher
	logg      *logger.Logger
}

// NewService wires the campaign service.
func NewService(
	tx txRunner,
	repo Repository,
	wallet walletFunds,
	inventory inventoryReserver,
	platform surveys.Platform,
	publisher outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("rewards repository required")
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet service required")
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
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:        tx,
		repo:      repo,
		wallet:    wallet,
		inventory: inventory,
		surveys:   platform,
		outbox:    publisher,
		logg:      logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Reward, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	owner, err := s.surveys.SurveyOwner(ctx, input.SurveyID)
	if err != nil {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyKES
	}
	total := input.AmountPerRecipient.Mul(decimal.NewFromInt(int64(input.MaxRecipients)))

	var reward *models.Reward
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		reward = &models.Reward{
			ID:                 uuid.New(),
			TenantID:           input.TenantID,
			SurveyID:           input.SurveyID,
			UserID:             owner,
			RewardType:         input.RewardType,
			TotalAmount:        total,
			AmountPerRecipient: input.AmountPerRecipient,
			Currency:           currency,
			Provider:           providerFor(input.RewardType),
			MaxRecipients:      input.MaxRecipients,
			RemainingRewards:   input.MaxRecipients,
			Status:             enums.RewardStatusActive,
		}
		if _, createErr := s.repo.WithTx(tx).Create(ctx, reward); createErr != nil {
			if db.IsUniqueViolation(createErr, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "survey already has a reward campaign")
			}
			return createErr
		}

		if _, debitErr := s.wallet.DebitTx(ctx, tx, wallets.MutationInput{
			TenantID:    input.TenantID,
			UserID:      input.ActorUserID,
			Amount:      total,
			ReferenceID: &reward.ID,
			Description: fmt.Sprintf("Funding for %s reward campaign", input.RewardType),
		}); debitErr != nil {
			return debitErr
		}

		if walletType, ok := input.RewardType.SystemWalletType(); ok {
			if reserveErr := s.inventory.ReserveTx(ctx, tx, walletType, total); reserveErr != nil {
				return reserveErr
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRewardCreated,
			AggregateType: enums.AggregateReward,
			AggregateID:   reward.ID,
			Data: payloads.RewardCreatedEvent{
				RewardID:      reward.ID,
				TenantID:      reward.TenantID,
				SurveyID:      reward.SurveyID,
				RewardType:    reward.RewardType,
				TotalAmount:   reward.TotalAmount,
				MaxRecipients: reward.MaxRecipients,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithRewardID(ctx, reward.ID.String()), "reward campaign created")
	return reward, nil
}

func (s *service) Get(ctx context.Context, tenantID, rewardID uuid.UUID) (*models.Reward, error) {
	reward, err := s.repo.FindByID(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil || reward.TenantID != tenantID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reward not found")
	}
	return reward, nil
}

func (s *service) GetBySurvey(ctx context.Context, tenantID, surveyID uuid.UUID) (*models.Reward, error) {
	reward, err := s.repo.FindByTenantAndSurvey(ctx, tenantID, surveyID)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no reward campaign for survey")
	}
	return reward, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (*ListPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	items, err := s.repo.ListByTenant(ctx, tenantID, limit+1, cursor)
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

// Cancel stops an active campaign, refunding the un-disbursed remainder and
// releasing the matching inventory reservation.
func (s *service) Cancel(ctx context.Context, tenantID, rewardID uuid.UUID) (*models.Reward, error) {
	var reward *models.Reward
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByID(ctx, rewardID)
		if err != nil {
			return err
		}
		if current == nil || current.TenantID != tenantID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reward not found")
		}
		switch current.Status {
		case enums.RewardStatusDepleted:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot cancel a depleted reward")
		case enums.RewardStatusCancelled:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reward already cancelled")
		}

		cancelled, err := repo.CancelGuarded(ctx, rewardID)
		if err != nil {
			return err
		}
		if !cancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reward is no longer active")
		}

		// The guarded update serialized against any in-flight disbursement
		// decrement, so this re-read is the authoritative remainder. The
		// earlier read may be stale and must not price the refund.
		current, err = repo.FindByID(ctx, rewardID)
		if err != nil {
			return err
		}
		if current == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "reward vanished during cancel")
		}

		refund := current.AmountPerRecipient.Mul(decimal.NewFromInt(int64(current.RemainingRewards)))
		if refund.IsPositive() {
			if _, creditErr := s.wallet.CreditTx(ctx, tx, wallets.MutationInput{
				TenantID:    tenantID,
				Amount:      refund,
				ReferenceID: &current.ID,
				Description: "Refund for cancelled reward campaign",
			}); creditErr != nil {
				return creditErr
			}
			if walletType, ok := current.RewardType.SystemWalletType(); ok {
				if rollbackErr := s.inventory.RollbackTx(ctx, tx, walletType, refund); rollbackErr != nil {
					return rollbackErr
				}
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRewardCancelled,
			AggregateType: enums.AggregateReward,
			AggregateID:   current.ID,
			Data: payloads.RewardCancelledEvent{
				RewardID:       current.ID,
				TenantID:       current.TenantID,
				SurveyID:       current.SurveyID,
				RefundedAmount: refund,
				CancelledAt:    time.Now().UTC(),
			},
			Version: 1,
		}); err != nil {
			return err
		}

		reward, err = repo.FindByID(ctx, rewardID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

func providerFor(rewardType enums.RewardType) string {
	if rewardType == enums.RewardTypeLoyaltyPoints {
		return ProviderLoyalty
	}
	return ProviderAirtime
}

func validateCreate(input CreateInput) error {
	if input.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if input.SurveyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "survey id required")
	}
	if !input.RewardType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid reward type")
	}
	if !input.AmountPerRecipient.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount per recipient must be greater than zero")
	}
	if input.MaxRecipients <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "max recipients must be greater than zero")
	}
	return nil
}
