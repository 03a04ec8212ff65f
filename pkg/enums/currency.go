package enums

import (
	"fmt"
	"strings"
)

// Currency represents supported monetary denominations.
type Currency string

const (
	CurrencyKES Currency = "KES"
	CurrencyNGN Currency = "NGN"
	CurrencyGHS Currency = "GHS"
	CurrencyUGX Currency = "UGX"
	CurrencyTZS Currency = "TZS"
	CurrencyUSD Currency = "USD"
)

var validCurrencies = []Currency{
	CurrencyKES,
	CurrencyNGN,
	CurrencyGHS,
	CurrencyUGX,
	CurrencyTZS,
	CurrencyUSD,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts a raw string into a Currency. Gateway payloads
// arrive in either case.
func ParseCurrency(value string) (Currency, error) {
	upper := strings.ToUpper(value)
	for _, candidate := range validCurrencies {
		if string(candidate) == upper {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
