package reconcile

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/internal/rewards"
	"github.com/sautihq/sauti-backend/internal/rewards/fulfillment"
	"github.com/sautihq/sauti-backend/pkg/config"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	"github.com/sautihq/sauti-backend/pkg/logger"
	"github.com/sautihq/sauti-backend/pkg/outbox"
)

func setupReconcileTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:reconcile_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS rewards (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  survey_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  reward_type TEXT NOT NULL,
  total_amount NUMERIC NOT NULL,
  amount_per_recipient NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'KES',
  provider TEXT NOT NULL,
  max_recipients INTEGER NOT NULL,
  remaining_rewards INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'ACTIVE',
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS reward_transactions (
  id TEXT PRIMARY KEY,
  reward_id TEXT NOT NULL,
  participant_id TEXT NOT NULL,
  recipient_identifier TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'KES',
  status TEXT NOT NULL DEFAULT 'PENDING',
  provider_transaction_id TEXT,
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingPublisher struct {
	events []outbox.DomainEvent
}

func (p *recordingPublisher) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count(eventType enums.OutboxEventType) int {
	n := 0
	for _, e := range p.events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

type sweeperFixture struct {
	db          *gorm.DB
	sweeper     *Sweeper
	rewards     rewards.Repository
	fulfillment fulfillment.Repository
	publisher   *recordingPublisher
}

func newSweeperFixture(t *testing.T) *sweeperFixture {
	t.Helper()

	db := setupReconcileTestDB(t)
	publisher := &recordingPublisher{}
	rewardsRepo := rewards.NewRepository(db)
	fulfillmentRepo := fulfillment.NewRepository(db)

	sweeper, err := NewSweeper(
		gormTxRunner{db: db},
		fulfillmentRepo,
		rewardsRepo,
		outbox.NewDLQRepository(db),
		publisher,
		nil,
		logger.New(logger.Options{ServiceName: "reconcile-test"}),
		config.ReconcileConfig{PendingSLA: 30 * time.Minute, BatchSize: 100},
	)
	require.NoError(t, err)

	return &sweeperFixture{
		db:          db,
		sweeper:     sweeper,
		rewards:     rewardsRepo,
		fulfillment: fulfillmentRepo,
		publisher:   publisher,
	}
}

func (f *sweeperFixture) seedReward(t *testing.T, maxRecipients, remaining int) *models.Reward {
	t.Helper()
	per := decimal.RequireFromString("50.00")
	reward, err := f.rewards.Create(context.Background(), &models.Reward{
		TenantID:           uuid.New(),
		SurveyID:           uuid.New(),
		UserID:             uuid.New(),
		RewardType:         enums.RewardTypeAirtime,
		TotalAmount:        per.Mul(decimal.NewFromInt(int64(maxRecipients))),
		AmountPerRecipient: per,
		Currency:           enums.CurrencyKES,
		Provider:           "africastalking",
		MaxRecipients:      maxRecipients,
		RemainingRewards:   remaining,
		Status:             enums.RewardStatusActive,
	})
	require.NoError(t, err)
	return reward
}

func (f *sweeperFixture) seedTransaction(t *testing.T, rewardID uuid.UUID, status enums.RewardTransactionStatus, age time.Duration) *models.RewardTransaction {
	t.Helper()
	txn := &models.RewardTransaction{
		ID:                  uuid.New(),
		RewardID:            rewardID,
		ParticipantID:       uuid.New(),
		RecipientIdentifier: "+254700000001",
		Amount:              decimal.RequireFromString("50.00"),
		Currency:            enums.CurrencyKES,
		Status:              status,
		CreatedAt:           time.Now().UTC().Add(-age),
		UpdatedAt:           time.Now().UTC().Add(-age),
	}
	require.NoError(t, f.db.Create(txn).Error)
	return txn
}

func TestSweepStalePending(t *testing.T) {
	f := newSweeperFixture(t)
	ctx := context.Background()

	reward := f.seedReward(t, 5, 5)
	stale := f.seedTransaction(t, reward.ID, enums.RewardTransactionStatusPending, time.Hour)
	fresh := f.seedTransaction(t, reward.ID, enums.RewardTransactionStatusPending, time.Minute)

	swept, err := f.sweeper.SweepStalePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	failed, err := f.fulfillment.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RewardTransactionStatusFailed, failed.Status)
	require.NotNil(t, failed.FailureReason)
	assert.Equal(t, staleFailureReason, *failed.FailureReason)

	untouched, err := f.fulfillment.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RewardTransactionStatusPending, untouched.Status)

	assert.Equal(t, 1, f.publisher.count(enums.EventDisbursementFailed))
}

func TestRepairUndecrementedDrift(t *testing.T) {
	f := newSweeperFixture(t)
	ctx := context.Background()

	// Three successes landed but only one decrement survived.
	reward := f.seedReward(t, 5, 4)
	for i := 0; i < 3; i++ {
		f.seedTransaction(t, reward.ID, enums.RewardTransactionStatusSuccess, time.Hour)
	}

	repaired, err := f.sweeper.RepairUndecremented(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	current, err := f.rewards.FindByID(ctx, reward.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.RemainingRewards)
	assert.Equal(t, enums.RewardStatusActive, current.Status)
}

func TestRepairDepletesWhenDriftConsumesLastSlot(t *testing.T) {
	f := newSweeperFixture(t)
	ctx := context.Background()

	reward := f.seedReward(t, 2, 1)
	for i := 0; i < 2; i++ {
		f.seedTransaction(t, reward.ID, enums.RewardTransactionStatusSuccess, time.Hour)
	}

	repaired, err := f.sweeper.RepairUndecremented(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	current, err := f.rewards.FindByID(ctx, reward.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, current.RemainingRewards)
	assert.Equal(t, enums.RewardStatusDepleted, current.Status)
	assert.Equal(t, 1, f.publisher.count(enums.EventRewardDepleted))
}

func TestRepairLeavesConsistentRewardsAlone(t *testing.T) {
	f := newSweeperFixture(t)
	ctx := context.Background()

	reward := f.seedReward(t, 5, 3)
	for i := 0; i < 2; i++ {
		f.seedTransaction(t, reward.ID, enums.RewardTransactionStatusSuccess, time.Hour)
	}

	repaired, err := f.sweeper.RepairUndecremented(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, repaired)

	current, err := f.rewards.FindByID(ctx, reward.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, current.RemainingRewards)
}

func TestInspectDLQAlertsOnBacklog(t *testing.T) {
	f := newSweeperFixture(t)
	ctx := context.Background()

	depth, err := f.sweeper.InspectDLQ(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
	assert.Empty(t, f.publisher.events)

	errMsg := "pubsub topic not found"
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return outbox.NewDLQRepository(f.db).InsertTx(tx, models.OutboxDLQ{
			EventID:       uuid.New(),
			EventType:     enums.EventRewardDisbursed,
			AggregateType: enums.AggregateRewardTransaction,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonNonRetryable,
			ErrorMessage:  &errMsg,
			AttemptCount:  1,
		})
	}))

	depth, err = f.sweeper.InspectDLQ(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
	assert.Equal(t, 1, f.publisher.count(enums.EventNotificationRequested))
}
