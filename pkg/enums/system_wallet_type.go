package enums

import "fmt"

// SystemWalletType identifies a platform-owned inventory pool.
type SystemWalletType string

const (
	SystemWalletTypeAirtime    SystemWalletType = "AIRTIME"
	SystemWalletTypeDataBundle SystemWalletType = "DATA_BUNDLE"
)

var validSystemWalletTypes = []SystemWalletType{
	SystemWalletTypeAirtime,
	SystemWalletTypeDataBundle,
}

// String implements fmt.Stringer.
func (s SystemWalletType) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SystemWalletType) IsValid() bool {
	for _, candidate := range validSystemWalletTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSystemWalletType converts raw input into a SystemWalletType.
func ParseSystemWalletType(value string) (SystemWalletType, error) {
	for _, candidate := range validSystemWalletTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid system wallet type %q", value)
}
