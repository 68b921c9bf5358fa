package notifications

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"firebase.google.com/go/v4/messaging"

	"github.com/angelmondragon/medorders-backend/internal/events"
	"github.com/angelmondragon/medorders-backend/pkg/enums"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// invalidTopicChars matches characters FCM topic names may not contain.
var invalidTopicChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.~%]`)

// PushNotifier tells the placing account about status changes on its orders.
// Devices subscribe to the account topic themselves.
type PushNotifier struct {
	sender      messageSender
	topicPrefix string
}

// NewPushNotifier wraps an FCM client.
func NewPushNotifier(client *messaging.Client, topicPrefix string) (*PushNotifier, error) {
	if client == nil {
		return nil, errors.New("messaging client required")
	}
	return newPushNotifier(client, topicPrefix), nil
}

func newPushNotifier(sender messageSender, topicPrefix string) *PushNotifier {
	return &PushNotifier{sender: sender, topicPrefix: topicPrefix}
}

// Topic is the FCM topic an account's devices subscribe to.
func (n *PushNotifier) Topic(accountID string) string {
	return n.topicPrefix + invalidTopicChars.ReplaceAllString(accountID, "_")
}

// Handle is an events.Handler. Creation events are not pushed; the placer
// already knows.
func (n *PushNotifier) Handle(ctx context.Context, event events.OrderEvent) error {
	if event.Type == events.TypeOrderCreated || event.PlacedByID == "" {
		return nil
	}
	title, body := pushText(event)
	msg := &messaging.Message{
		Topic: n.Topic(event.PlacedByID),
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"orderId":       event.OrderID.String(),
			"status":        string(event.To),
			"paymentStatus": string(event.PaymentStatus),
		},
	}
	if _, err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send push for order %s: %w", event.OrderID, err)
	}
	return nil
}

func pushText(event events.OrderEvent) (string, string) {
	ref := shortRef(event.OrderID.String())
	if event.Type == events.TypePaymentRecorded {
		return "Payment received", fmt.Sprintf("We received your payment for order %s.", ref)
	}
	switch event.To {
	case enums.OrderStatusPaid:
		return "Payment confirmed", fmt.Sprintf("Order %s is paid and awaiting shipment.", ref)
	case enums.OrderStatusShipped:
		return "Order shipped", fmt.Sprintf("Order %s is on its way.", ref)
	case enums.OrderStatusCompleted:
		return "Order delivered", fmt.Sprintf("Order %s has been completed.", ref)
	case enums.OrderStatusCancelled:
		return "Order cancelled", fmt.Sprintf("Order %s was cancelled.", ref)
	default:
		return "Order updated", fmt.Sprintf("Order %s is now %s.", ref, event.To)
	}
}

func shortRef(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
