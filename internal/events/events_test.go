package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/medorders-backend/pkg/enums"
)

func TestRegistryPublishesToAllHandlersInOrder(t *testing.T) {
	reg := NewRegistry()
	var calls []string

	reg.Subscribe("first", func(ctx context.Context, e OrderEvent) error {
		calls = append(calls, "first")
		return errors.New("first failed")
	})
	reg.Subscribe("panics", func(ctx context.Context, e OrderEvent) error {
		calls = append(calls, "panics")
		panic("boom")
	})
	reg.Subscribe("last", func(ctx context.Context, e OrderEvent) error {
		calls = append(calls, "last")
		assert.NotEqual(t, uuid.Nil, e.ID)
		assert.False(t, e.OccurredAt.IsZero())
		return nil
	})

	err := reg.Publish(context.Background(), OrderEvent{
		Type:    TypeOrderStatusChanged,
		OrderID: uuid.New(),
		From:    enums.OrderStatusShipped,
		To:      enums.OrderStatusCompleted,
	})

	assert.Equal(t, []string{"first", "panics", "last"}, calls)
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "first: first failed")
	assert.Contains(t, errs[1].Error(), "panics: handler panic")
}

func TestRegistryUnsubscribe(t *testing.T) {
	reg := NewRegistry()
	count := 0
	unsubscribe := reg.Subscribe("counter", func(ctx context.Context, e OrderEvent) error {
		count++
		return nil
	})
	require.Equal(t, 1, reg.Len())

	require.NoError(t, reg.Publish(context.Background(), OrderEvent{Type: TypeOrderCreated}))
	unsubscribe()
	unsubscribe()
	require.NoError(t, reg.Publish(context.Background(), OrderEvent{Type: TypeOrderCreated}))

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, reg.Len())
}
