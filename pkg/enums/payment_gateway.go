package enums

import "fmt"

// PaymentGateway identifies the external payment processor.
type PaymentGateway string

const (
	PaymentGatewayPaystack PaymentGateway = "PAYSTACK"
)

var validPaymentGateways = []PaymentGateway{
	PaymentGatewayPaystack,
}

// String implements fmt.Stringer.
func (p PaymentGateway) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PaymentGateway) IsValid() bool {
	for _, candidate := range validPaymentGateways {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentGateway converts raw input into a PaymentGateway.
func ParsePaymentGateway(value string) (PaymentGateway, error) {
	for _, candidate := range validPaymentGateways {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment gateway %q", value)
}
