package razorpaywebhook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryIdempotencyStore struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{data: map[string]string{}}
}

func (m *memoryIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], m.err
}

func (m *memoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = "1"
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (m *memoryIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return m.err
}

func TestIdempotencyGuard(t *testing.T) {
	ctx := context.Background()
	store := newMemoryIdempotencyStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "razorpay")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	if err != nil || seen {
		t.Fatalf("first delivery: seen=%v err=%v", seen, err)
	}
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil || !seen {
		t.Fatalf("replayed delivery: seen=%v err=%v", seen, err)
	}

	if err := guard.Delete(ctx, "evt_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil || seen {
		t.Fatalf("after delete: seen=%v err=%v", seen, err)
	}

	if _, err := guard.CheckAndMark(ctx, ""); err == nil {
		t.Fatalf("expected error for empty event id")
	}
}

func TestIdempotencyGuardPropagatesStoreErrors(t *testing.T) {
	store := newMemoryIdempotencyStore()
	store.err = errors.New("connection refused")
	guard, err := NewIdempotencyGuard(store, time.Hour, "razorpay")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	if _, err := guard.CheckAndMark(context.Background(), "evt_1"); err == nil {
		t.Fatalf("expected store error")
	}
}

func TestNewIdempotencyGuardValidation(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour, "razorpay"); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, err := NewIdempotencyGuard(newMemoryIdempotencyStore(), -time.Second, "razorpay"); err == nil {
		t.Fatalf("expected error for negative ttl")
	}
	if _, err := NewIdempotencyGuard(newMemoryIdempotencyStore(), time.Hour, ""); err == nil {
		t.Fatalf("expected error for empty scope")
	}
}

func TestEventKey(t *testing.T) {
	event := capturedEvent("order_gw_1", "pay_9")
	if got := EventKey("evt_header", event); got != "evt_header" {
		t.Fatalf("header id should win, got %q", got)
	}
	if got := EventKey("", event); got != "payment:payment.captured:pay_9" {
		t.Fatalf("unexpected fallback key %q", got)
	}
	if got := EventKey("", &Event{Event: "order.paid"}); got != "" {
		t.Fatalf("expected empty key without payment, got %q", got)
	}
}
