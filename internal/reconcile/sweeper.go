package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/internal/rewards"
	"github.com/sautihq/sauti-backend/internal/rewards/fulfillment"
	"github.com/sautihq/sauti-backend/pkg/config"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	"github.com/sautihq/sauti-backend/pkg/logger"
	"github.com/sautihq/sauti-backend/pkg/metrics"
	"github.com/sautihq/sauti-backend/pkg/outbox"
	"github.com/sautihq/sauti-backend/pkg/outbox/payloads"
)

// staleFailureReason is written on PENDING transactions that outlived the
// provider callback SLA.
const staleFailureReason = "timed out awaiting provider callback"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type dlqLister interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Sweeper repairs the gaps the crash-safe disbursement ordering can leave:
// PENDING transactions whose provider outcome never landed, and SUCCESS
// transactions whose reward decrement was lost.
type Sweeper struct {
	tx          txRunner
	fulfillment fulfillment.Repository
	rewards     rewards.Repository
	dlq         dlqLister
	outbox      outboxPublisher
	metrics     *metrics.JobMetrics
	logg        *logger.Logger
	cfg         config.ReconcileConfig
}

// NewSweeper wires the reconciliation sweeps.
func NewSweeper(
	tx txRunner,
	fulfillmentRepo fulfillment.Repository,
	rewardsRepo rewards.Repository,
	dlq dlqLister,
	publisher outboxPublisher,
	jobMetrics *metrics.JobMetrics,
	logg *logger.Logger,
	cfg config.ReconcileConfig,
) (*Sweeper, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if fulfillmentRepo == nil {
		return nil, fmt.Errorf("fulfillment repository required")
	}
	if rewardsRepo == nil {
		return nil, fmt.Errorf("rewards repository required")
	}
	if dlq == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if jobMetrics == nil {
		jobMetrics = metrics.NewJobMetrics(nil)
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.PendingSLA <= 0 {
		return nil, fmt.Errorf("pending SLA must be positive")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Sweeper{
		tx:          tx,
		fulfillment: fulfillmentRepo,
		rewards:     rewardsRepo,
		dlq:         dlq,
		outbox:      publisher,
		metrics:     jobMetrics,
		logg:        logg,
		cfg:         cfg,
	}, nil
}

// Run executes all sweeps once. Individual sweep failures are logged and
// counted; one failing sweep does not stop the others.
func (s *Sweeper) Run(ctx context.Context) {
	sweeps := []struct {
		name string
		fn   func(context.Context) (int, error)
	}{
		{"sweep_stale_pending", s.SweepStalePending},
		{"repair_undecremented", s.RepairUndecremented},
		{"inspect_dlq", s.InspectDLQ},
	}
	for _, sweep := range sweeps {
		start := time.Now()
		affected, err := sweep.fn(ctx)
		s.metrics.ObserveDuration(sweep.name, time.Since(start))
		if err != nil {
			s.metrics.IncFailure(sweep.name)
			s.logg.Error(s.logg.WithField(ctx, "sweep", sweep.name), "reconciliation sweep failed", err)
			continue
		}
		s.metrics.IncSuccess(sweep.name)
		if affected > 0 {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"sweep":    sweep.name,
				"affected": affected,
			}), "reconciliation sweep applied repairs")
		}
	}
}

// SweepStalePending fails PENDING transactions older than the SLA. The
// provider may still have paid; operators chase those through the
// disbursement_failed alerts and the provider's own reports.
func (s *Sweeper) SweepStalePending(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.PendingSLA)
	stale, err := s.fulfillment.ListStalePending(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, txn := range stale {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.fulfillment.WithTx(tx)
			if err := repo.MarkFailed(ctx, txn.ID, staleFailureReason); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventDisbursementFailed,
				AggregateType: enums.AggregateRewardTransaction,
				AggregateID:   txn.ID,
				Data: payloads.DisbursementFailedEvent{
					RewardTransactionID: txn.ID,
					RewardID:            txn.RewardID,
					ParticipantID:       txn.ParticipantID,
					Reason:              staleFailureReason,
				},
				Version: 1,
			})
		})
		if err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}

// RepairUndecremented realigns remaining_rewards with the SUCCESS count for
// active campaigns. A crash between marking a transaction SUCCESS and
// decrementing the reward leaves the counter one high; this closes the gap.
func (s *Sweeper) RepairUndecremented(ctx context.Context) (int, error) {
	active, err := s.rewards.ListActive(ctx, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, reward := range active {
		successes, err := s.fulfillment.CountSuccessByReward(ctx, reward.ID)
		if err != nil {
			return repaired, err
		}
		expected := reward.MaxRecipients - int(successes)
		if expected < 0 {
			expected = 0
		}
		if reward.RemainingRewards <= expected {
			continue
		}

		drift := reward.RemainingRewards - expected
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.rewards.WithTx(tx)
			for i := 0; i < drift; i++ {
				decremented, err := repo.DecrementRemainingGuarded(ctx, reward.ID)
				if err != nil {
					return err
				}
				if !decremented {
					break
				}
			}
			depleted, err := repo.MarkDepletedIfExhausted(ctx, reward.ID)
			if err != nil {
				return err
			}
			if !depleted {
				return nil
			}
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
		})
		if err != nil {
			return repaired, err
		}

		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"reward_id": reward.ID.String(),
			"drift":     drift,
		}), "repaired reward counter drift")
		repaired++
	}
	return repaired, nil
}

// InspectDLQ raises an operator alert while dead-lettered events exist.
func (s *Sweeper) InspectDLQ(ctx context.Context) (int, error) {
	entries, err := s.dlq.List(ctx, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	s.logg.Warn(s.logg.WithField(ctx, "dlq_depth", len(entries)),
		"outbox dead letter queue is not empty")
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   uuid.New(),
			Data: payloads.NotificationRequestedEvent{
				Type:    "outbox_dlq_backlog",
				Subject: "Outbox DLQ requires attention",
				Body:    fmt.Sprintf("%d events are parked in the outbox dead letter queue", len(entries)),
			},
			Version: 1,
		})
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
