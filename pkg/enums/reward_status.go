package enums

import "fmt"

// RewardStatus is the lifecycle state of a reward campaign.
type RewardStatus string

const (
	RewardStatusActive    RewardStatus = "ACTIVE"
	RewardStatusDepleted  RewardStatus = "DEPLETED"
	RewardStatusCancelled RewardStatus = "CANCELLED"
)

var validRewardStatuses = []RewardStatus{
	RewardStatusActive,
	RewardStatusDepleted,
	RewardStatusCancelled,
}

// String implements fmt.Stringer.
func (r RewardStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r RewardStatus) IsValid() bool {
	for _, candidate := range validRewardStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRewardStatus converts raw input into a RewardStatus.
func ParseRewardStatus(value string) (RewardStatus, error) {
	for _, candidate := range validRewardStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reward status %q", value)
}
