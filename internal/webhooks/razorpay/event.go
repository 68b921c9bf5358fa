package razorpaywebhook

// EventPaymentCaptured is the only event that changes order state.
const EventPaymentCaptured = "payment.captured"

// Event is the webhook envelope Razorpay posts.
type Event struct {
	Entity    string       `json:"entity"`
	AccountID string       `json:"account_id"`
	Event     string       `json:"event"`
	Contains  []string     `json:"contains"`
	Payload   EventPayload `json:"payload"`
	CreatedAt int64        `json:"created_at"`
}

type EventPayload struct {
	Payment *PaymentWrapper `json:"payment,omitempty"`
}

type PaymentWrapper struct {
	Entity PaymentEntity `json:"entity"`
}

// PaymentEntity is the payment resource embedded in payment.* events.
type PaymentEntity struct {
	ID          string `json:"id"`
	Entity      string `json:"entity"`
	AmountPaise int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	OrderID     string `json:"order_id"`
	Method      string `json:"method"`
	Captured    bool   `json:"captured"`
}

// Payment returns the embedded payment entity, if any.
func (e *Event) Payment() *PaymentEntity {
	if e == nil || e.Payload.Payment == nil {
		return nil
	}
	return &e.Payload.Payment.Entity
}
