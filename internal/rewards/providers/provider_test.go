package providers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sautihq/sauti-backend/internal/loyalty"
	"github.com/sautihq/sauti-backend/pkg/africastalking"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
)

type stubTelco struct {
	airtimeCalls int
	dataCalls    int
	result       *africastalking.AirtimeResult
	err          error
}

func (s *stubTelco) SendAirtime(context.Context, string, decimal.Decimal, string) (*africastalking.AirtimeResult, error) {
	s.airtimeCalls++
	return s.result, s.err
}

func (s *stubTelco) SendMobileData(context.Context, string, decimal.Decimal, string) (*africastalking.AirtimeResult, error) {
	s.dataCalls++
	return s.result, s.err
}

type stubLedger struct {
	credited *loyalty.MutationInput
	err      error
}

func (s *stubLedger) CreditTx(_ context.Context, _ *gorm.DB, input loyalty.MutationInput) (*models.LoyaltyTransaction, error) {
	s.credited = &input
	if s.err != nil {
		return nil, s.err
	}
	return &models.LoyaltyTransaction{ID: uuid.New(), Amount: input.Amount}, nil
}

func TestRegistryResolvesByType(t *testing.T) {
	airtime, err := NewAirtimeProvider(&stubTelco{})
	require.NoError(t, err)
	points, err := NewLoyaltyProvider(&stubLedger{})
	require.NoError(t, err)

	registry, err := NewRegistry(airtime, points)
	require.NoError(t, err)

	p, err := registry.Resolve(enums.RewardTypeAirtime)
	require.NoError(t, err)
	assert.Equal(t, "africastalking", p.Name())

	p, err = registry.Resolve(enums.RewardTypeDataBundle)
	require.NoError(t, err)
	assert.Equal(t, "africastalking", p.Name())

	p, err = registry.Resolve(enums.RewardTypeLoyaltyPoints)
	require.NoError(t, err)
	assert.Equal(t, "loyalty", p.Name())
}

func TestRegistryRejectsOverlappingProviders(t *testing.T) {
	airtime, err := NewAirtimeProvider(&stubTelco{})
	require.NoError(t, err)
	duplicate, err := NewAirtimeProvider(&stubTelco{})
	require.NoError(t, err)

	_, err = NewRegistry(airtime, duplicate)
	require.Error(t, err)
}

func TestRegistryNoProviderForType(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	_, err = registry.Resolve(enums.RewardTypeAirtime)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInternal))
}

func TestAirtimeProviderDispatchesByRewardType(t *testing.T) {
	telco := &stubTelco{result: &africastalking.AirtimeResult{RequestID: "ATQid_1", Status: "Sent"}}
	provider, err := NewAirtimeProvider(telco)
	require.NoError(t, err)

	reward := &models.Reward{RewardType: enums.RewardTypeAirtime}
	txn := &models.RewardTransaction{
		RecipientIdentifier: "+254700000001",
		Amount:              decimal.NewFromInt(50),
		Currency:            enums.CurrencyKES,
	}

	result, err := provider.Disburse(context.Background(), reward, txn)
	require.NoError(t, err)
	assert.Equal(t, "ATQid_1", result.ProviderTransactionID)
	assert.Equal(t, 1, telco.airtimeCalls)

	reward.RewardType = enums.RewardTypeDataBundle
	_, err = provider.Disburse(context.Background(), reward, txn)
	require.NoError(t, err)
	assert.Equal(t, 1, telco.dataCalls)
}

func TestAirtimeProviderRequiresPhoneNumber(t *testing.T) {
	provider, err := NewAirtimeProvider(&stubTelco{})
	require.NoError(t, err)

	_, err = provider.Disburse(context.Background(),
		&models.Reward{RewardType: enums.RewardTypeAirtime},
		&models.RewardTransaction{Amount: decimal.NewFromInt(10)})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestLoyaltyProviderCreditsLedgerInTx(t *testing.T) {
	ledger := &stubLedger{}
	provider, err := NewLoyaltyProvider(ledger)
	require.NoError(t, err)

	txProvider, ok := provider.(TxProvider)
	require.True(t, ok, "loyalty provider must disburse transactionally")

	userID := uuid.New()
	txn := &models.RewardTransaction{
		ID:                  uuid.New(),
		RecipientIdentifier: userID.String(),
		Amount:              decimal.NewFromInt(20),
		Currency:            enums.CurrencyKES,
	}

	result, err := txProvider.DisburseTx(context.Background(), nil,
		&models.Reward{RewardType: enums.RewardTypeLoyaltyPoints}, txn)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ProviderTransactionID)
	require.NotNil(t, ledger.credited)
	assert.Equal(t, userID, ledger.credited.UserID)
	require.NotNil(t, ledger.credited.RewardTransactionID)
	assert.Equal(t, txn.ID, *ledger.credited.RewardTransactionID)
}

func TestLoyaltyProviderRejectsNonUUIDRecipient(t *testing.T) {
	provider, err := NewLoyaltyProvider(&stubLedger{})
	require.NoError(t, err)

	_, err = provider.(TxProvider).DisburseTx(context.Background(), nil,
		&models.Reward{RewardType: enums.RewardTypeLoyaltyPoints},
		&models.RewardTransaction{RecipientIdentifier: "+254700000001", Amount: decimal.NewFromInt(5)})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestLoyaltyProviderRefusesPlainDisburse(t *testing.T) {
	provider, err := NewLoyaltyProvider(&stubLedger{})
	require.NoError(t, err)

	_, err = provider.Disburse(context.Background(),
		&models.Reward{RewardType: enums.RewardTypeLoyaltyPoints},
		&models.RewardTransaction{RecipientIdentifier: uuid.NewString(), Amount: decimal.NewFromInt(5)})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInternal))
}
