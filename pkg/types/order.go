package types

import (
	"time"

	"github.com/angelmondragon/medorders-backend/pkg/enums"
)

// ActorSnapshot records who placed an order at the time it was placed.
type ActorSnapshot struct {
	ID   string     `json:"id" firestore:"id"`
	Name string     `json:"name" firestore:"name"`
	Role enums.Role `json:"role" firestore:"role"`
}

// ProductSnapshot is the denormalized product reference kept on an order.
type ProductSnapshot struct {
	ID       string `json:"id" firestore:"id"`
	Name     string `json:"name" firestore:"name"`
	ImageRef string `json:"imageRef,omitempty" firestore:"imageRef,omitempty"`
}

// OrderItem is one immutable order line. Amounts are in paise.
type OrderItem struct {
	Size           string `json:"size" firestore:"size"`
	UnitPricePaise int64  `json:"unitPricePaise" firestore:"unitPricePaise"`
	Quantity       int    `json:"quantity" firestore:"quantity"`
	Pieces         int    `json:"pieces" firestore:"pieces"`
	LineTotalPaise int64  `json:"lineTotalPaise" firestore:"lineTotalPaise"`
}

// OrderItems is stored as a JSON document column.
type OrderItems []OrderItem

// Total sums the line totals.
func (items OrderItems) Total() int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotalPaise
	}
	return total
}

// PaymentDetails holds what the gateway reported when the payment was captured.
type PaymentDetails struct {
	PaymentID      string    `json:"paymentId" firestore:"paymentId"`
	GatewayOrderID string    `json:"gatewayOrderId" firestore:"gatewayOrderId"`
	Signature      string    `json:"signature" firestore:"signature"`
	Method         string    `json:"method" firestore:"method"`
	Captured       bool      `json:"captured" firestore:"captured"`
	PaidAt         time.Time `json:"paidAt" firestore:"paidAt"`
}
