package enums

import "fmt"

// SubscriptionStatus mirrors gateway subscription states.
type SubscriptionStatus string

const (
	SubscriptionStatusActive      SubscriptionStatus = "ACTIVE"
	SubscriptionStatusNonRenewing SubscriptionStatus = "NON_RENEWING"
	SubscriptionStatusAttention   SubscriptionStatus = "ATTENTION"
	SubscriptionStatusCancelled   SubscriptionStatus = "CANCELLED"
	SubscriptionStatusCompleted   SubscriptionStatus = "COMPLETED"
)

var validSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusActive,
	SubscriptionStatusNonRenewing,
	SubscriptionStatusAttention,
	SubscriptionStatusCancelled,
	SubscriptionStatusCompleted,
}

// String implements fmt.Stringer.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SubscriptionStatus) IsValid() bool {
	for _, candidate := range validSubscriptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubscriptionStatus maps the gateway's lowercase vocabulary onto ours.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	switch value {
	case "active":
		return SubscriptionStatusActive, nil
	case "non-renewing":
		return SubscriptionStatusNonRenewing, nil
	case "attention":
		return SubscriptionStatusAttention, nil
	case "cancelled":
		return SubscriptionStatusCancelled, nil
	case "completed":
		return SubscriptionStatusCompleted, nil
	}
	for _, candidate := range validSubscriptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}
