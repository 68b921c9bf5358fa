// Package notifications forwards committed order events to Pub/Sub and to
// Firebase Cloud Messaging.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/medorders-backend/internal/events"
)

const defaultPublishTimeout = 10 * time.Second

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
	ResumePublish(orderingKey string)
}

// TopicForwarder publishes every order event to the orders topic so other
// systems can react to status changes. When ordered, the order id is the
// ordering key so a consumer never sees Completed before Shipped.
type TopicForwarder struct {
	pub     publisher
	ordered bool
	timeout time.Duration
}

// NewTopicForwarder wraps a Pub/Sub publisher, inheriting its ordering mode.
func NewTopicForwarder(p *gcppubsub.Publisher) (*TopicForwarder, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return &TopicForwarder{
		pub:     &gcpPublisher{Publisher: p},
		ordered: p.EnableMessageOrdering,
		timeout: defaultPublishTimeout,
	}, nil
}

// Handle is an events.Handler.
func (f *TopicForwarder) Handle(ctx context.Context, event events.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_id":    event.ID.String(),
			"event_type":  string(event.Type),
			"order_id":    event.OrderID.String(),
			"status":      string(event.To),
			"occurred_at": event.OccurredAt.Format(time.RFC3339Nano),
		},
	}
	if f.ordered {
		msg.OrderingKey = event.OrderID.String()
	}

	publishCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	result := f.pub.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		// a failed ordered publish pauses its key until resumed
		if msg.OrderingKey != "" {
			f.pub.ResumePublish(msg.OrderingKey)
		}
		return fmt.Errorf("publish order event %s: %w", event.ID, err)
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}

func (p *gcpPublisher) ResumePublish(orderingKey string) {
	if p == nil || p.Publisher == nil {
		return
	}
	p.Publisher.ResumePublish(orderingKey)
}
