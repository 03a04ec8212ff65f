package providers

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/pkg/africastalking"
	"github.com/sautihq/sauti-backend/pkg/db/models"
	"github.com/sautihq/sauti-backend/pkg/enums"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
)

// telcoClient is the slice of the Africa's Talking client the provider uses.
type telcoClient interface {
	SendAirtime(ctx context.Context, phoneNumber string, amount decimal.Decimal, currencyCode string) (*africastalking.AirtimeResult, error)
	SendMobileData(ctx context.Context, phoneNumber string, amount decimal.Decimal, currencyCode string) (*africastalking.AirtimeResult, error)
}

type airtimeProvider struct {
	client telcoClient
}

// NewAirtimeProvider builds the telco-backed provider covering airtime and
// data-bundle rewards.
func NewAirtimeProvider(client telcoClient) (Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("africastalking client required")
	}
	return &airtimeProvider{client: client}, nil
}

func (p *airtimeProvider) Name() string {
	return "africastalking"
}

func (p *airtimeProvider) Supports(rewardType enums.RewardType) bool {
	return rewardType == enums.RewardTypeAirtime || rewardType == enums.RewardTypeDataBundle
}

func (p *airtimeProvider) Disburse(ctx context.Context, reward *models.Reward, txn *models.RewardTransaction) (*Result, error) {
	if txn.RecipientIdentifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient phone number required")
	}

	var (
		result *africastalking.AirtimeResult
		err    error
	)
	switch reward.RewardType {
	case enums.RewardTypeAirtime:
		result, err = p.client.SendAirtime(ctx, txn.RecipientIdentifier, txn.Amount, txn.Currency.String())
	case enums.RewardTypeDataBundle:
		result, err = p.client.SendMobileData(ctx, txn.RecipientIdentifier, txn.Amount, txn.Currency.String())
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal,
			fmt.Sprintf("airtime provider cannot handle reward type %s", reward.RewardType))
	}
	if err != nil {
		return nil, err
	}
	return &Result{ProviderTransactionID: result.RequestID}, nil
}
