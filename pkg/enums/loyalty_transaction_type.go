package enums

import "fmt"

// LoyaltyTransactionType classifies loyalty ledger entries.
type LoyaltyTransactionType string

const (
	LoyaltyTransactionTypeCredit LoyaltyTransactionType = "CREDIT"
	LoyaltyTransactionTypeDebit  LoyaltyTransactionType = "DEBIT"
)

var validLoyaltyTransactionTypes = []LoyaltyTransactionType{
	LoyaltyTransactionTypeCredit,
	LoyaltyTransactionTypeDebit,
}

// String implements fmt.Stringer.
func (l LoyaltyTransactionType) String() string {
	return string(l)
}

// IsValid reports whether the value is known.
func (l LoyaltyTransactionType) IsValid() bool {
	for _, candidate := range validLoyaltyTransactionTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLoyaltyTransactionType converts raw input into a LoyaltyTransactionType.
func ParseLoyaltyTransactionType(value string) (LoyaltyTransactionType, error) {
	for _, candidate := range validLoyaltyTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loyalty transaction type %q", value)
}
