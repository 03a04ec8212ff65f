package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
	"github.com/sautihq/sauti-backend/pkg/paystack"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:payments_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS payment_events (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  email TEXT NOT NULL,
  survey_id TEXT,
  idempotency_key TEXT NOT NULL,
  gateway TEXT NOT NULL DEFAULT 'PAYSTACK',
  gateway_reference TEXT NOT NULL UNIQUE,
  amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'KES',
  status TEXT NOT NULL DEFAULT 'PENDING',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (tenant_id, idempotency_key)
);`, `
CREATE TABLE IF NOT EXISTS gateway_transactions (
  id TEXT PRIMARY KEY,
  payment_event_id TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT 'CHARGE',
  amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'KES',
  gateway_transaction_id TEXT NOT NULL UNIQUE,
  processed_at DATETIME NOT NULL,
  created_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type stubGateway struct {
	calls int
	err   error
}

func (g *stubGateway) InitializeTransaction(_ context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &paystack.InitializeResponse{
		AuthorizationURL: "https://checkout.paystack.com/" + req.Reference,
		AccessCode:       "ac_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func newPaymentsFixture(t *testing.T) (*gorm.DB, Service, *stubGateway) {
	t.Helper()
	db := setupPaymentsTestDB(t)
	gateway := &stubGateway{}
	svc, err := NewService(NewRepository(db), gateway, logger.New(logger.Options{ServiceName: "payments-test"}))
	require.NoError(t, err)
	return db, svc, gateway
}

func TestCreatePaymentEvent(t *testing.T) {
	_, svc, gateway := newPaymentsFixture(t)
	ctx := context.Background()

	intent, err := svc.CreatePaymentEvent(ctx, CreateInput{
		TenantID:       uuid.New(),
		UserID:         uuid.New(),
		Email:          "finance@acme.co.ke",
		IdempotencyKey: "topup-2026-001",
		Amount:         decimal.RequireFromString("500.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, gateway.calls)
	assert.Contains(t, intent.AuthorizationURL, "https://checkout.paystack.com/")
	assert.Equal(t, enums.PaymentStatusPending, intent.Event.Status)
	assert.Equal(t, enums.CurrencyKES, intent.Event.Currency)
	assert.NotEmpty(t, intent.Event.GatewayReference)
}

func TestCreatePaymentEventIdempotentReplay(t *testing.T) {
	_, svc, gateway := newPaymentsFixture(t)
	ctx := context.Background()

	input := CreateInput{
		TenantID:       uuid.New(),
		UserID:         uuid.New(),
		Email:          "finance@acme.co.ke",
		IdempotencyKey: "topup-2026-002",
		Amount:         decimal.RequireFromString("500.00"),
	}
	first, err := svc.CreatePaymentEvent(ctx, input)
	require.NoError(t, err)

	replay, err := svc.CreatePaymentEvent(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first.Event.ID, replay.Event.ID)
	assert.Empty(t, replay.AuthorizationURL)
	assert.Equal(t, 1, gateway.calls)
}

func TestCreatePaymentEventGatewayFailureLeavesNoRecord(t *testing.T) {
	_, svc, gateway := newPaymentsFixture(t)
	gateway.err = pkgerrors.New(pkgerrors.CodeDependency, "paystack unavailable")
	ctx := context.Background()

	tenantID := uuid.New()
	_, err := svc.CreatePaymentEvent(ctx, CreateInput{
		TenantID:       tenantID,
		UserID:         uuid.New(),
		Email:          "finance@acme.co.ke",
		IdempotencyKey: "topup-2026-003",
		Amount:         decimal.RequireFromString("500.00"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))

	// Nothing persisted; a retry goes back to the gateway.
	gateway.err = nil
	intent, err := svc.CreatePaymentEvent(ctx, CreateInput{
		TenantID:       tenantID,
		UserID:         uuid.New(),
		Email:          "finance@acme.co.ke",
		IdempotencyKey: "topup-2026-003",
		Amount:         decimal.RequireFromString("500.00"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, intent.AuthorizationURL)
}

func TestCreatePaymentEventValidation(t *testing.T) {
	_, svc, _ := newPaymentsFixture(t)
	ctx := context.Background()

	_, err := svc.CreatePaymentEvent(ctx, CreateInput{
		TenantID:       uuid.New(),
		UserID:         uuid.New(),
		Email:          "finance@acme.co.ke",
		IdempotencyKey: "topup-2026-004",
		Amount:         decimal.Zero,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreatePaymentEvent(ctx, CreateInput{
		TenantID: uuid.New(),
		UserID:   uuid.New(),
		Email:    "finance@acme.co.ke",
		Amount:   decimal.RequireFromString("10.00"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestConfirmChargeOnlyOnce(t *testing.T) {
	db, svc, _ := newPaymentsFixture(t)
	ctx := context.Background()

	intent, err := svc.CreatePaymentEvent(ctx, CreateInput{
		TenantID:       uuid.New(),
		UserID:         uuid.New(),
		Email:          "finance@acme.co.ke",
		IdempotencyKey: "topup-2026-005",
		Amount:         decimal.RequireFromString("500.00"),
	})
	require.NoError(t, err)

	confirm := ConfirmInput{
		EventID:              intent.Event.ID,
		GatewayTransactionID: "813472913",
		Amount:               decimal.RequireFromString("500.00"),
		Currency:             enums.CurrencyKES,
		ProcessedAt:          time.Now().UTC(),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		applied, err := svc.ConfirmChargeTx(ctx, tx, confirm)
		require.NoError(t, err)
		assert.True(t, applied)
		return nil
	})
	require.NoError(t, err)

	// Second delivery of the same charge is a no-op.
	err = db.Transaction(func(tx *gorm.DB) error {
		applied, err := svc.ConfirmChargeTx(ctx, tx, confirm)
		require.NoError(t, err)
		assert.False(t, applied)
		return nil
	})
	require.NoError(t, err)

	event, err := svc.FindByGatewayReference(ctx, intent.Event.GatewayReference)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSucceeded, event.Status)

	var count int64
	require.NoError(t, db.Model(&models.GatewayTransaction{}).
		Where("payment_event_id = ?", intent.Event.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
