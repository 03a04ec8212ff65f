package enums

import "fmt"

// InvoiceStatus mirrors gateway invoice states.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusFailed  InvoiceStatus = "FAILED"
)

var validInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusPending,
	InvoiceStatusPaid,
	InvoiceStatusFailed,
}

// String implements fmt.Stringer.
func (i InvoiceStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is known.
func (i InvoiceStatus) IsValid() bool {
	for _, candidate := range validInvoiceStatuses {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInvoiceStatus maps the gateway's lowercase vocabulary onto ours.
func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	switch value {
	case "pending":
		return InvoiceStatusPending, nil
	case "success", "paid":
		return InvoiceStatusPaid, nil
	case "failed":
		return InvoiceStatusFailed, nil
	}
	for _, candidate := range validInvoiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}
