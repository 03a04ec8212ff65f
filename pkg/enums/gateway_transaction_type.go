package enums

import "fmt"

// GatewayTransactionType classifies money movement recorded from the gateway.
type GatewayTransactionType string

const (
	GatewayTransactionTypeCharge GatewayTransactionType = "CHARGE"
	GatewayTransactionTypeRefund GatewayTransactionType = "REFUND"
)

var validGatewayTransactionTypes = []GatewayTransactionType{
	GatewayTransactionTypeCharge,
	GatewayTransactionTypeRefund,
}

// String implements fmt.Stringer.
func (g GatewayTransactionType) String() string {
	return string(g)
}

// IsValid reports whether the value is known.
func (g GatewayTransactionType) IsValid() bool {
	for _, candidate := range validGatewayTransactionTypes {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGatewayTransactionType converts raw input into a GatewayTransactionType.
func ParseGatewayTransactionType(value string) (GatewayTransactionType, error) {
	for _, candidate := range validGatewayTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gateway transaction type %q", value)
}
