package rewards

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/internal/inventory"
	"github.com/sautihq/sauti-backend/internal/tenants"
	"github.com/sautihq/sauti-backend/internal/wallets"
	"github.com/sautihq/sauti-backend/pkg/config"
	"github.com/sautihq/sauti-backend/pkg/enums"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
	"github.com/sautihq/sauti-backend/pkg/outbox"
)

func setupRewardsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:rewards_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  user_id TEXT,
  balance NUMERIC NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'KES',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (tenant_id, user_id)
);`, `
CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  wallet_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  type TEXT NOT NULL,
  reference_id TEXT,
  description TEXT NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS system_wallets (
  id TEXT PRIMARY KEY,
  wallet_type TEXT NOT NULL UNIQUE,
  current_balance NUMERIC NOT NULL DEFAULT 0,
  reserved_balance NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
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
  updated_at DATETIME,
  UNIQUE (tenant_id, survey_id)
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

type stubPlatform struct {
	owner uuid.UUID
}

func (s stubPlatform) SurveyOwner(context.Context, uuid.UUID) (uuid.UUID, error) {
	return s.owner, nil
}

func (s stubPlatform) ResponseExists(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return true, nil
}

type recordingPublisher struct {
	events []outbox.DomainEvent
}

func (p *recordingPublisher) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	p.events = append(p.events, event)
	return nil
}

type campaignFixture struct {
	db        *gorm.DB
	svc       Service
	wallets   wallets.Service
	inventory inventory.Service
	publisher *recordingPublisher
	owner     uuid.UUID
	tenantID  uuid.UUID
}

func newCampaignFixture(t *testing.T) *campaignFixture {
	t.Helper()

	db := setupRewardsTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "rewards-test"})
	runner := gormTxRunner{db: db}
	publisher := &recordingPublisher{}

	directory, err := tenants.NewConfigDirectory(config.WalletConfig{DefaultCurrency: "KES"})
	require.NoError(t, err)
	walletSvc, err := wallets.NewService(runner, wallets.NewRepository(db), directory, publisher, logg, config.WalletConfig{DefaultCurrency: "KES"})
	require.NoError(t, err)

	procurement, err := inventory.NewManualProcurement(logg)
	require.NoError(t, err)
	inventorySvc, err := inventory.NewService(runner, inventory.NewRepository(db), procurement, logg)
	require.NoError(t, err)

	owner := uuid.New()
	svc, err := NewService(runner, NewRepository(db), walletSvc, inventorySvc, stubPlatform{owner: owner}, publisher, logg)
	require.NoError(t, err)

	return &campaignFixture{
		db:        db,
		svc:       svc,
		wallets:   walletSvc,
		inventory: inventorySvc,
		publisher: publisher,
		owner:     owner,
		tenantID:  uuid.New(),
	}
}

func (f *campaignFixture) fundTenant(t *testing.T, amount string) {
	t.Helper()
	_, err := f.wallets.Credit(context.Background(), wallets.MutationInput{
		TenantID:    f.tenantID,
		Amount:      decimal.RequireFromString(amount),
		Description: "Paystack top-up",
	})
	require.NoError(t, err)
}

func (f *campaignFixture) stockAirtime(t *testing.T, amount string) {
	t.Helper()
	_, err := f.inventory.Restock(context.Background(), enums.SystemWalletTypeAirtime, decimal.RequireFromString(amount))
	require.NoError(t, err)
}

func TestCreateFundsAndReservesAtomically(t *testing.T) {
	f := newCampaignFixture(t)
	ctx := context.Background()

	f.fundTenant(t, "1000.00")
	f.stockAirtime(t, "500.00")

	reward, err := f.svc.Create(ctx, CreateInput{
		TenantID:           f.tenantID,
		SurveyID:           uuid.New(),
		RewardType:         enums.RewardTypeAirtime,
		AmountPerRecipient: decimal.RequireFromString("50.00"),
		MaxRecipients:      4,
		Currency:           enums.CurrencyKES,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RewardStatusActive, reward.Status)
	assert.Equal(t, 4, reward.RemainingRewards)
	assert.Equal(t, f.owner, reward.UserID)
	assert.Equal(t, ProviderAirtime, reward.Provider)
	assert.True(t, reward.TotalAmount.Equal(decimal.RequireFromString("200.00")))

	wallet, err := f.wallets.Balance(ctx, f.tenantID, nil)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("800.00")))

	pool, err := f.inventory.Get(ctx, enums.SystemWalletTypeAirtime)
	require.NoError(t, err)
	assert.True(t, pool.ReservedBalance.Equal(decimal.RequireFromString("200.00")))
}

func TestCreateInsufficientFundsLeavesNothingBehind(t *testing.T) {
	f := newCampaignFixture(t)
	ctx := context.Background()

	f.fundTenant(t, "100.00")
	f.stockAirtime(t, "500.00")

	surveyID := uuid.New()
	_, err := f.svc.Create(ctx, CreateInput{
		TenantID:           f.tenantID,
		SurveyID:           surveyID,
		RewardType:         enums.RewardTypeAirtime,
		AmountPerRecipient: decimal.RequireFromString("50.00"),
		MaxRecipients:      4,
		Currency:           enums.CurrencyKES,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds))
	assert.Contains(t, err.Error(), "Required: 200.00, Available: 100.00")

	// Rolled back wholesale: no campaign row, no reservation, no debit.
	existing, err := f.svc.GetBySurvey(ctx, f.tenantID, surveyID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	assert.Nil(t, existing)

	wallet, err := f.wallets.Balance(ctx, f.tenantID, nil)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("100.00")))

	pool, err := f.inventory.Get(ctx, enums.SystemWalletTypeAirtime)
	require.NoError(t, err)
	assert.True(t, pool.ReservedBalance.IsZero())
}

func TestCreateInsufficientInventoryAborts(t *testing.T) {
	f := newCampaignFixture(t)
	ctx := context.Background()

	f.fundTenant(t, "1000.00")
	f.stockAirtime(t, "100.00")

	_, err := f.svc.Create(ctx, CreateInput{
		TenantID:           f.tenantID,
		SurveyID:           uuid.New(),
		RewardType:         enums.RewardTypeAirtime,
		AmountPerRecipient: decimal.RequireFromString("50.00"),
		MaxRecipients:      4,
		Currency:           enums.CurrencyKES,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientInventory))

	wallet, err := f.wallets.Balance(ctx, f.tenantID, nil)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("1000.00")))
}

func TestCreateSecondCampaignForSurveyRejected(t *testing.T) {
	f := newCampaignFixture(t)
	ctx := context.Background()

	f.fundTenant(t, "1000.00")
	f.stockAirtime(t, "500.00")

	surveyID := uuid.New()
	input := CreateInput{
		TenantID:           f.tenantID,
		SurveyID:           surveyID,
		RewardType:         enums.RewardTypeAirtime,
		AmountPerRecipient: decimal.RequireFromString("10.00"),
		MaxRecipients:      2,
		Currency:           enums.CurrencyKES,
	}
	_, err := f.svc.Create(ctx, input)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, input)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	wallet, err := f.wallets.Balance(ctx, f.tenantID, nil)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("980.00")))
}

func TestCreateLoyaltyCampaignSkipsInventory(t *testing.T) {
	f := newCampaignFixture(t)
	ctx := context.Background()

	f.fundTenant(t, "1000.00")

	reward, err := f.svc.Create(ctx, CreateInput{
		TenantID:           f.tenantID,
		SurveyID:           uuid.New(),
		RewardType:         enums.RewardTypeLoyaltyPoints,
		AmountPerRecipient: decimal.RequireFromString("25.00"),
		MaxRecipients:      10,
		Currency:           enums.CurrencyKES,
	})
	require.NoError(t, err)
	assert.Equal(t, ProviderLoyalty, reward.Provider)

	wallet, err := f.wallets.Balance(ctx, f.tenantID, nil)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("750.00")))
}

func TestCancelRefundsRemainingSlots(t *testing.T) {
	f := newCampaignFixture(t)
	ctx := context.Background()

	f.fundTenant(t, "1000.00")
	f.stockAirtime(t, "500.00")

	reward, err := f.svc.Create(ctx, CreateInput{
		TenantID:           f.tenantID,
		SurveyID:           uuid.New(),
		RewardType:         enums.RewardTypeAirtime,
		AmountPerRecipient: decimal.RequireFromString("50.00"),
		MaxRecipients:      4,
		Currency:           enums.CurrencyKES,
	})
	require.NoError(t, err)

	// One disbursement already went out.
	repo := NewRepository(f.db)
	decremented, err := repo.DecrementRemainingGuarded(ctx, reward.ID)
	require.NoError(t, err)
	require.True(t, decremented)
	require.NoError(t, f.inventory.Commit(ctx, enums.SystemWalletTypeAirtime, decimal.RequireFromString("50.00")))

	cancelled, err := f.svc.Cancel(ctx, f.tenantID, reward.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RewardStatusCancelled, cancelled.Status)

	// 3 undisbursed slots refunded: 1000 - 200 + 150.
	wallet, err := f.wallets.Balance(ctx, f.tenantID, nil)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("950.00")))

	pool, err := f.inventory.Get(ctx, enums.SystemWalletTypeAirtime)
	require.NoError(t, err)
	assert.True(t, pool.ReservedBalance.IsZero())

	_, err = f.svc.Cancel(ctx, f.tenantID, reward.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

// raceCancelRepo consumes one reward slot right before the cancel flips the
// status, reproducing a disbursement that lands between the service's first
// read and the guarded update.
type raceCancelRepo struct {
	Repository
}

func (r *raceCancelRepo) WithTx(tx *gorm.DB) Repository {
	return &raceCancelRepo{Repository: r.Repository.WithTx(tx)}
}

func (r *raceCancelRepo) CancelGuarded(ctx context.Context, rewardID uuid.UUID) (bool, error) {
	if _, err := r.Repository.DecrementRemainingGuarded(ctx, rewardID); err != nil {
		return false, err
	}
	return r.Repository.CancelGuarded(ctx, rewardID)
}

func TestCancelRefundsOnlyPostDecrementRemainder(t *testing.T) {
	f := newCampaignFixture(t)
	ctx := context.Background()

	f.fundTenant(t, "100.00")
	f.stockAirtime(t, "500.00")

	reward, err := f.svc.Create(ctx, CreateInput{
		TenantID:           f.tenantID,
		SurveyID:           uuid.New(),
		RewardType:         enums.RewardTypeAirtime,
		AmountPerRecipient: decimal.RequireFromString("50.00"),
		MaxRecipients:      2,
		Currency:           enums.CurrencyKES,
	})
	require.NoError(t, err)

	logg := logger.New(logger.Options{ServiceName: "rewards-test"})
	racing, err := NewService(
		gormTxRunner{db: f.db},
		&raceCancelRepo{Repository: NewRepository(f.db)},
		f.wallets,
		f.inventory,
		stubPlatform{owner: f.owner},
		f.publisher,
		logg,
	)
	require.NoError(t, err)

	cancelled, err := racing.Cancel(ctx, f.tenantID, reward.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RewardStatusCancelled, cancelled.Status)
	assert.Equal(t, 1, cancelled.RemainingRewards)

	// Only the surviving slot is refunded: the concurrently consumed one
	// must stay spent or the tenant recovers more than the budget.
	wallet, err := f.wallets.Balance(ctx, f.tenantID, nil)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("50.00")),
		"balance %s", wallet.Balance)
}

func TestCancelOtherTenantNotFound(t *testing.T) {
	f := newCampaignFixture(t)
	ctx := context.Background()

	f.fundTenant(t, "1000.00")
	f.stockAirtime(t, "500.00")

	reward, err := f.svc.Create(ctx, CreateInput{
		TenantID:           f.tenantID,
		SurveyID:           uuid.New(),
		RewardType:         enums.RewardTypeAirtime,
		AmountPerRecipient: decimal.RequireFromString("50.00"),
		MaxRecipients:      2,
		Currency:           enums.CurrencyKES,
	})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, uuid.New(), reward.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
