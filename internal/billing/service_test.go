package billing

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

	"github.com/sautihq/sauti-backend/pkg/enums"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

func setupBillingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:billing_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS subscriptions (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  user_id TEXT,
  plan_code TEXT NOT NULL,
  gateway_subscription_code TEXT NOT NULL UNIQUE,
  gateway_customer_code TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'ACTIVE',
  current_period_start DATETIME,
  current_period_end DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS invoices (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  subscription_id TEXT,
  gateway_invoice_id TEXT NOT NULL UNIQUE,
  amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'KES',
  status TEXT NOT NULL DEFAULT 'PENDING',
  due_date DATETIME,
  invoice_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newBillingService(t *testing.T) Service {
	t.Helper()
	db := setupBillingTestDB(t)
	svc, err := NewService(NewRepository(db), logger.New(logger.Options{ServiceName: "billing-test"}))
	require.NoError(t, err)
	return svc
}

func TestUpsertSubscriptionCreateThenUpdate(t *testing.T) {
	svc := newBillingService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	created, err := svc.UpsertSubscription(ctx, SubscriptionUpsert{
		TenantID:                tenantID,
		PlanCode:                "PLN_growth",
		GatewaySubscriptionCode: "SUB_abc123",
		GatewayCustomerCode:     "CUS_xyz",
		Status:                  "active",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, enums.SubscriptionStatusActive, created.Status)

	periodEnd := time.Now().UTC().AddDate(0, 1, 0)
	updated, err := svc.UpsertSubscription(ctx, SubscriptionUpsert{
		GatewaySubscriptionCode: "SUB_abc123",
		Status:                  "non-renewing",
		CurrentPeriodEnd:        &periodEnd,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, enums.SubscriptionStatusNonRenewing, updated.Status)
	require.NotNil(t, updated.CurrentPeriodEnd)

	subs, err := svc.ListSubscriptions(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestUpsertSubscriptionUnknownStatusSkipped(t *testing.T) {
	svc := newBillingService(t)
	ctx := context.Background()

	sub, err := svc.UpsertSubscription(ctx, SubscriptionUpsert{
		TenantID:                uuid.New(),
		GatewaySubscriptionCode: "SUB_unknown",
		Status:                  "suspended",
	})
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestUpsertInvoiceLinksSubscription(t *testing.T) {
	svc := newBillingService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	sub, err := svc.UpsertSubscription(ctx, SubscriptionUpsert{
		TenantID:                tenantID,
		PlanCode:                "PLN_growth",
		GatewaySubscriptionCode: "SUB_abc123",
		GatewayCustomerCode:     "CUS_xyz",
		Status:                  "active",
	})
	require.NoError(t, err)

	invoice, err := svc.UpsertInvoice(ctx, InvoiceUpsert{
		TenantID:         tenantID,
		GatewayInvoiceID: "INV_001",
		SubscriptionCode: "SUB_abc123",
		Amount:           decimal.RequireFromString("2500.00"),
		Status:           "pending",
	})
	require.NoError(t, err)
	require.NotNil(t, invoice.SubscriptionID)
	assert.Equal(t, sub.ID, *invoice.SubscriptionID)
	assert.Equal(t, enums.InvoiceStatusPending, invoice.Status)

	// Payment confirmation arrives with the gateway's "success" wording.
	paid, err := svc.UpsertInvoice(ctx, InvoiceUpsert{
		GatewayInvoiceID: "INV_001",
		Status:           "success",
	})
	require.NoError(t, err)
	assert.Equal(t, invoice.ID, paid.ID)
	assert.Equal(t, enums.InvoiceStatusPaid, paid.Status)

	invoices, err := svc.ListInvoices(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
}
