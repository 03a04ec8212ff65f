package enums

import "fmt"

// RewardTransactionStatus tracks a single disbursement attempt.
type RewardTransactionStatus string

const (
	RewardTransactionStatusPending RewardTransactionStatus = "PENDING"
	RewardTransactionStatusSuccess RewardTransactionStatus = "SUCCESS"
	RewardTransactionStatusFailed  RewardTransactionStatus = "FAILED"
)

var validRewardTransactionStatuses = []RewardTransactionStatus{
	RewardTransactionStatusPending,
	RewardTransactionStatusSuccess,
	RewardTransactionStatusFailed,
}

// String implements fmt.Stringer.
func (r RewardTransactionStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r RewardTransactionStatus) IsValid() bool {
	for _, candidate := range validRewardTransactionStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRewardTransactionStatus converts raw input into a RewardTransactionStatus.
func ParseRewardTransactionStatus(value string) (RewardTransactionStatus, error) {
	for _, candidate := range validRewardTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reward transaction status %q", value)
}
