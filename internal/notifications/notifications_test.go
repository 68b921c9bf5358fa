package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/medorders-backend/internal/events"
	"github.com/angelmondragon/medorders-backend/pkg/enums"
)

type stubResult struct {
	id  string
	err error
}

func (r stubResult) Get(ctx context.Context) (string, error) {
	return r.id, r.err
}

type stubPublisher struct {
	msgs    []*gcppubsub.Message
	resumed []string
	err     error
}

func (p *stubPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	p.msgs = append(p.msgs, msg)
	return stubResult{id: "msg-1", err: p.err}
}

func (p *stubPublisher) ResumePublish(orderingKey string) {
	p.resumed = append(p.resumed, orderingKey)
}

type stubSender struct {
	msgs []*messaging.Message
	err  error
}

func (s *stubSender) Send(ctx context.Context, msg *messaging.Message) (string, error) {
	s.msgs = append(s.msgs, msg)
	return "projects/x/messages/1", s.err
}

func sampleEvent(typ events.Type, to enums.OrderStatus) events.OrderEvent {
	return events.OrderEvent{
		ID:            uuid.New(),
		Type:          typ,
		OrderID:       uuid.MustParse("6f1c2d3e-4b5a-4c6d-8e9f-0a1b2c3d4e5f"),
		From:          enums.OrderStatusShipped,
		To:            to,
		PaymentStatus: enums.PaymentStatusUnpaid,
		PlacedByID:    "ms-1",
		FulfilledBy:   "dist-1",
		ActorID:       "dist-1",
		ActorRole:     enums.RoleDistributor,
		OccurredAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestTopicForwarderPublishesEvent(t *testing.T) {
	pub := &stubPublisher{}
	fwd := &TopicForwarder{pub: pub, timeout: time.Second}
	event := sampleEvent(events.TypeOrderStatusChanged, enums.OrderStatusCompleted)

	require.NoError(t, fwd.Handle(context.Background(), event))
	require.Len(t, pub.msgs, 1)

	msg := pub.msgs[0]
	assert.Equal(t, string(events.TypeOrderStatusChanged), msg.Attributes["event_type"])
	assert.Equal(t, event.OrderID.String(), msg.Attributes["order_id"])
	assert.Equal(t, "Completed", msg.Attributes["status"])

	assert.Empty(t, msg.OrderingKey)

	var decoded events.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, event.OrderID, decoded.OrderID)
	assert.Equal(t, enums.OrderStatusCompleted, decoded.To)
}

func TestTopicForwarderOrdersByOrderID(t *testing.T) {
	pub := &stubPublisher{}
	fwd := &TopicForwarder{pub: pub, ordered: true, timeout: time.Second}
	event := sampleEvent(events.TypeOrderStatusChanged, enums.OrderStatusShipped)

	require.NoError(t, fwd.Handle(context.Background(), event))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, event.OrderID.String(), pub.msgs[0].OrderingKey)
	assert.Empty(t, pub.resumed)
}

func TestTopicForwarderReturnsPublishError(t *testing.T) {
	pub := &stubPublisher{err: errors.New("unavailable")}
	fwd := &TopicForwarder{pub: pub, timeout: time.Second}
	assert.Error(t, fwd.Handle(context.Background(), sampleEvent(events.TypeOrderStatusChanged, enums.OrderStatusShipped)))
	assert.Empty(t, pub.resumed)
}

func TestTopicForwarderResumesOrderingKeyAfterFailure(t *testing.T) {
	pub := &stubPublisher{err: errors.New("unavailable")}
	fwd := &TopicForwarder{pub: pub, ordered: true, timeout: time.Second}
	event := sampleEvent(events.TypeOrderStatusChanged, enums.OrderStatusShipped)

	assert.Error(t, fwd.Handle(context.Background(), event))
	assert.Equal(t, []string{event.OrderID.String()}, pub.resumed)
}

func TestNewConstructorsRequireClients(t *testing.T) {
	_, err := NewTopicForwarder(nil)
	assert.Error(t, err)
	_, err = NewPushNotifier(nil, "orders_")
	assert.Error(t, err)
}

func TestPushNotifierSendsToPlacerTopic(t *testing.T) {
	sender := &stubSender{}
	n := newPushNotifier(sender, "orders_")

	require.NoError(t, n.Handle(context.Background(), sampleEvent(events.TypeOrderStatusChanged, enums.OrderStatusShipped)))
	require.Len(t, sender.msgs, 1)

	msg := sender.msgs[0]
	assert.Equal(t, "orders_ms-1", msg.Topic)
	assert.Equal(t, "Order shipped", msg.Notification.Title)
	assert.Contains(t, msg.Notification.Body, "6f1c2d3e")
	assert.Equal(t, "Shipped", msg.Data["status"])
}

func TestPushNotifierSkipsCreationEvents(t *testing.T) {
	sender := &stubSender{}
	n := newPushNotifier(sender, "orders_")
	require.NoError(t, n.Handle(context.Background(), sampleEvent(events.TypeOrderCreated, enums.OrderStatusPending)))
	assert.Empty(t, sender.msgs)
}

func TestPushNotifierTopicSanitizesAccountID(t *testing.T) {
	n := newPushNotifier(&stubSender{}, "orders_")
	assert.Equal(t, "orders_user_example.com", n.Topic("user@example.com"))
}

func TestPushText(t *testing.T) {
	tests := []struct {
		typ   events.Type
		to    enums.OrderStatus
		title string
	}{
		{events.TypeOrderStatusChanged, enums.OrderStatusPaid, "Payment confirmed"},
		{events.TypeOrderStatusChanged, enums.OrderStatusCompleted, "Order delivered"},
		{events.TypeOrderStatusChanged, enums.OrderStatusCancelled, "Order cancelled"},
		{events.TypePaymentRecorded, enums.OrderStatusCancelled, "Payment received"},
	}
	for _, tc := range tests {
		title, _ := pushText(sampleEvent(tc.typ, tc.to))
		assert.Equal(t, tc.title, title)
	}
}
