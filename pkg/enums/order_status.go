package enums

import (
	"fmt"
	"strings"
)

// OrderStatus tracks the lifecycle of an order. Values are stored in this exact casing.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "Pending"
	OrderStatusPendingPayment OrderStatus = "Pending Payment"
	OrderStatusShipped        OrderStatus = "Shipped"
	OrderStatusPaid           OrderStatus = "Paid"
	OrderStatusCompleted      OrderStatus = "Completed"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPendingPayment,
	OrderStatusShipped,
	OrderStatusPaid,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus in canonical casing.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusCompleted || o == OrderStatusCancelled
}

// Canonical folds any casing of a known status onto its stored form.
// Unknown values are returned unchanged.
func (o OrderStatus) Canonical() OrderStatus {
	if parsed, err := ParseOrderStatus(string(o)); err == nil {
		return parsed
	}
	return o
}

// ParseOrderStatus converts raw input into an OrderStatus, ignoring case and
// surrounding whitespace. Underscores are accepted in place of spaces.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), "_", " ")
	for _, candidate := range validOrderStatuses {
		if strings.EqualFold(string(candidate), normalized) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
