package enums

import "fmt"

// PaymentMode decides how an order is paid and therefore its initial status.
type PaymentMode string

const (
	PaymentModeDirect PaymentMode = "direct"
	PaymentModeOnline PaymentMode = "online"
)

var validPaymentModes = []PaymentMode{
	PaymentModeDirect,
	PaymentModeOnline,
}

// String implements fmt.Stringer.
func (p PaymentMode) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMode.
func (p PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == p {
			return true
		}
	}
	return false
}

// InitialStatus returns the status a freshly created order starts in.
func (p PaymentMode) InitialStatus() OrderStatus {
	if p == PaymentModeOnline {
		return OrderStatusPendingPayment
	}
	return OrderStatusPending
}

// ParsePaymentMode converts raw input into a PaymentMode.
func ParsePaymentMode(value string) (PaymentMode, error) {
	for _, candidate := range validPaymentModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
