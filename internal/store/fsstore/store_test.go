package fsstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/medorders-backend/internal/store"
	"github.com/angelmondragon/medorders-backend/pkg/config"
	"github.com/angelmondragon/medorders-backend/pkg/db/models"
	"github.com/angelmondragon/medorders-backend/pkg/enums"
	"github.com/angelmondragon/medorders-backend/pkg/types"
)

func newEmulatorStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set; skipping firestore tests")
	}
	ctx := context.Background()
	client, err := NewClient(ctx, config.GCPConfig{ProjectID: "medorders-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	st, err := New(client)
	require.NoError(t, err)
	return st
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = NewClient(context.Background(), config.GCPConfig{})
	assert.Error(t, err)
}

func TestOrderAndProductRoundTrip(t *testing.T) {
	st := newEmulatorStore(t)
	ctx := context.Background()

	product := &models.Product{
		ID:       uuid.New(),
		Name:     "Syringe",
		IsActive: true,
		Variants: types.Variants{{Size: "M", Pieces: 10, UnitPricePaise: 1500, Stock: 5}},
	}
	require.NoError(t, st.CreateProduct(ctx, product))

	gatewayID := "order_" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)
	order := &models.Order{
		ID:               uuid.New(),
		PlacedBy:         types.ActorSnapshot{ID: "ms-1", Name: "City Pharmacy", Role: enums.RoleMedicalStore},
		PlacedByID:       "ms-1",
		FulfilledBy:      "admin",
		Product:          types.ProductSnapshot{ID: product.ID.String(), Name: product.Name},
		ProductID:        product.ID,
		Items:            types.OrderItems{{Size: "M", UnitPricePaise: 1500, Quantity: 3, Pieces: 10, LineTotalPaise: 4500}},
		TotalAmountPaise: 4500,
		PaymentMode:      enums.PaymentModeOnline,
		Status:           enums.OrderStatusPendingPayment,
		PaymentStatus:    enums.PaymentStatusUnpaid,
		RazorpayOrderID:  &gatewayID,
		CreatedAt:        now,
		LastUpdatedAt:    now,
	}
	require.NoError(t, st.CreateOrder(ctx, order))
	assert.ErrorIs(t, st.CreateOrder(ctx, order), store.ErrAlreadyExists)

	found, err := st.FindOrdersByGatewayOrderID(ctx, gatewayID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, order.ID, found[0].ID)
	assert.Equal(t, product.ID, found[0].ProductID)

	completed := enums.OrderStatusCompleted
	err = st.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.GetProduct(ctx, product.ID)
		if err != nil {
			return err
		}
		p.Variants[0].Stock -= 3
		if err := tx.SaveProduct(ctx, p); err != nil {
			return err
		}
		return tx.UpdateOrder(ctx, order.ID, store.OrderUpdate{Status: &completed, LastUpdatedAt: now})
	})
	require.NoError(t, err)

	gotProduct, err := st.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, gotProduct.Variants[0].Stock)
	assert.Equal(t, int64(2), gotProduct.Version)

	gotOrder, err := st.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, gotOrder.Status)

	_, err = st.GetOrder(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
