// Package events fans committed order changes out to in-process subscribers
// (push notifications, Pub/Sub, live UI streams).
package events

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/medorders-backend/pkg/enums"
)

// Type names an order event.
type Type string

const (
	TypeOrderCreated       Type = "order.created"
	TypeOrderStatusChanged Type = "order.status_changed"
	TypePaymentRecorded    Type = "order.payment_recorded"
)

// OrderEvent describes a committed change to one order.
type OrderEvent struct {
	ID            uuid.UUID           `json:"id"`
	Type          Type                `json:"type"`
	OrderID       uuid.UUID           `json:"orderId"`
	From          enums.OrderStatus   `json:"from,omitempty"`
	To            enums.OrderStatus   `json:"to"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	PlacedByID    string              `json:"placedById"`
	FulfilledBy   string              `json:"fulfilledBy"`
	ActorID       string              `json:"actorId"`
	ActorRole     enums.Role          `json:"actorRole"`
	OccurredAt    time.Time           `json:"occurredAt"`
}

// Handler receives events after the change that produced them has committed.
type Handler func(ctx context.Context, event OrderEvent) error

// Publisher is what services depend on.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

type subscription struct {
	name    string
	handler Handler
}

// Registry is a synchronous callback registry. Handlers run in subscription
// order; one failing handler does not stop the others.
type Registry struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscription
}

var _ Publisher = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{subs: make(map[int]subscription)}
}

// Subscribe registers h and returns a function that removes it.
func (r *Registry) Subscribe(name string, h Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.subs[id] = subscription{name: name, handler: h}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// Len reports how many handlers are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Publish delivers event to every handler and returns their combined errors.
func (r *Registry) Publish(ctx context.Context, event OrderEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	r.mu.RLock()
	ids := make([]int, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]subscription, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, r.subs[id])
	}
	r.mu.RUnlock()

	var errs error
	for _, sub := range subs {
		if err := invoke(ctx, sub, event); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", sub.name, err))
		}
	}
	return errs
}

func invoke(ctx context.Context, sub subscription, event OrderEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return sub.handler(ctx, event)
}
