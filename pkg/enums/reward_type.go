package enums

import "fmt"

// RewardType is the kind of incentive a campaign pays out.
type RewardType string

const (
	RewardTypeAirtime       RewardType = "AIRTIME"
	RewardTypeDataBundle    RewardType = "DATA_BUNDLE"
	RewardTypeLoyaltyPoints RewardType = "LOYALTY_POINTS"
)

// RewardTypes lists every known reward kind.
var RewardTypes = []RewardType{
	RewardTypeAirtime,
	RewardTypeDataBundle,
	RewardTypeLoyaltyPoints,
}

// String implements fmt.Stringer.
func (r RewardType) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r RewardType) IsValid() bool {
	for _, candidate := range RewardTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// SystemWalletType maps reward kinds backed by platform inventory to
// their pool. Loyalty points are minted, not pooled, so they have none.
func (r RewardType) SystemWalletType() (SystemWalletType, bool) {
	switch r {
	case RewardTypeAirtime:
		return SystemWalletTypeAirtime, true
	case RewardTypeDataBundle:
		return SystemWalletTypeDataBundle, true
	default:
		return "", false
	}
}

// ParseRewardType converts raw input into a RewardType.
func ParseRewardType(value string) (RewardType, error) {
	for _, candidate := range RewardTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reward type %q", value)
}
