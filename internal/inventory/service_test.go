package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/pkg/enums"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:inventory_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	systemWallets := `
CREATE TABLE IF NOT EXISTS system_wallets (
  id TEXT PRIMARY KEY,
  wallet_type TEXT NOT NULL UNIQUE,
  current_balance NUMERIC NOT NULL DEFAULT 0,
  reserved_balance NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(systemWallets).Error)
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubProcurement struct {
	err   error
	calls int
}

func (p *stubProcurement) Purchase(context.Context, enums.SystemWalletType, decimal.Decimal) error {
	p.calls++
	return p.err
}

func newInventoryTestService(t *testing.T, db *gorm.DB, procurement ProcurementClient) Service {
	t.Helper()
	svc, err := NewService(
		gormTxRunner{db: db},
		NewRepository(db),
		procurement,
		logger.New(logger.Options{ServiceName: "inventory-test"}),
	)
	require.NoError(t, err)
	return svc
}

func seedStock(t *testing.T, svc Service, walletType enums.SystemWalletType, amount string) {
	t.Helper()
	_, err := svc.Restock(context.Background(), walletType, decimal.RequireFromString(amount))
	require.NoError(t, err)
}

func TestReserveRollbackRoundTrip(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryTestService(t, db, &stubProcurement{})
	ctx := context.Background()

	seedStock(t, svc, enums.SystemWalletTypeAirtime, "500.00")

	require.NoError(t, svc.Reserve(ctx, enums.SystemWalletTypeAirtime, decimal.RequireFromString("120.00")))

	wallet, err := svc.Get(ctx, enums.SystemWalletTypeAirtime)
	require.NoError(t, err)
	assert.True(t, wallet.ReservedBalance.Equal(decimal.RequireFromString("120.00")))
	assert.True(t, wallet.CurrentBalance.Equal(decimal.RequireFromString("500.00")))

	require.NoError(t, svc.Rollback(ctx, enums.SystemWalletTypeAirtime, decimal.RequireFromString("120.00")))

	wallet, err = svc.Get(ctx, enums.SystemWalletTypeAirtime)
	require.NoError(t, err)
	assert.True(t, wallet.ReservedBalance.IsZero())
	assert.True(t, wallet.CurrentBalance.Equal(decimal.RequireFromString("500.00")))
}

func TestReserveInsufficientInventory(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryTestService(t, db, &stubProcurement{})
	ctx := context.Background()

	seedStock(t, svc, enums.SystemWalletTypeAirtime, "100.00")
	require.NoError(t, svc.Reserve(ctx, enums.SystemWalletTypeAirtime, decimal.RequireFromString("80.00")))

	err := svc.Reserve(ctx, enums.SystemWalletTypeAirtime, decimal.RequireFromString("30.00"))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientInventory))

	wallet, err := svc.Get(ctx, enums.SystemWalletTypeAirtime)
	require.NoError(t, err)
	assert.True(t, wallet.ReservedBalance.Equal(decimal.RequireFromString("80.00")))
}

func TestCommitConsumesStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryTestService(t, db, &stubProcurement{})
	ctx := context.Background()

	seedStock(t, svc, enums.SystemWalletTypeDataBundle, "200.00")
	require.NoError(t, svc.Reserve(ctx, enums.SystemWalletTypeDataBundle, decimal.RequireFromString("50.00")))
	require.NoError(t, svc.Commit(ctx, enums.SystemWalletTypeDataBundle, decimal.RequireFromString("50.00")))

	wallet, err := svc.Get(ctx, enums.SystemWalletTypeDataBundle)
	require.NoError(t, err)
	assert.True(t, wallet.CurrentBalance.Equal(decimal.RequireFromString("150.00")))
	assert.True(t, wallet.ReservedBalance.IsZero())
}

func TestCommitBeyondReservationRejected(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryTestService(t, db, &stubProcurement{})
	ctx := context.Background()

	seedStock(t, svc, enums.SystemWalletTypeAirtime, "200.00")
	require.NoError(t, svc.Reserve(ctx, enums.SystemWalletTypeAirtime, decimal.RequireFromString("20.00")))

	err := svc.Commit(ctx, enums.SystemWalletTypeAirtime, decimal.RequireFromString("50.00"))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestRestockFailedProcurementLeavesBalance(t *testing.T) {
	db := setupInventoryTestDB(t)
	procurement := &stubProcurement{}
	svc := newInventoryTestService(t, db, procurement)
	ctx := context.Background()

	seedStock(t, svc, enums.SystemWalletTypeAirtime, "100.00")

	procurement.err = errors.New("supplier unreachable")
	_, err := svc.Restock(ctx, enums.SystemWalletTypeAirtime, decimal.RequireFromString("400.00"))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))

	wallet, getErr := svc.Get(ctx, enums.SystemWalletTypeAirtime)
	require.NoError(t, getErr)
	assert.True(t, wallet.CurrentBalance.Equal(decimal.RequireFromString("100.00")))
}

func TestReserveRejectsInvalidInput(t *testing.T) {
	db := setupInventoryTestDB(t)
	svc := newInventoryTestService(t, db, &stubProcurement{})

	err := svc.Reserve(context.Background(), enums.SystemWalletType("SNACKS"), decimal.NewFromInt(1))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = svc.Reserve(context.Background(), enums.SystemWalletTypeAirtime, decimal.Zero)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
