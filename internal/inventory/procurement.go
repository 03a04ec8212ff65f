package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sautihq/sauti-backend/pkg/enums"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

// manualProcurement records purchases made out of band (bulk airtime bought
// directly from the telco portal). Restock calls then only book the stock.
type manualProcurement struct {
	logg *logger.Logger
}

// NewManualProcurement builds the procurement client used until supplier
// API access is provisioned.
func NewManualProcurement(logg *logger.Logger) (ProcurementClient, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &manualProcurement{logg: logg}, nil
}

func (p *manualProcurement) Purchase(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) error {
	p.logg.Info(p.logg.WithFields(ctx, map[string]any{
		"wallet_type": walletType.String(),
		"amount":      amount.StringFixed(2),
	}), "recording out-of-band inventory purchase")
	return nil
}
