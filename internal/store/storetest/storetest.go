// Package storetest builds isolated sqlite backed stores and fixtures for tests.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"

	"github.com/angelmondragon/medorders-backend/internal/store/sqlstore"
	"github.com/angelmondragon/medorders-backend/pkg/config"
	"github.com/angelmondragon/medorders-backend/pkg/db"
	"github.com/angelmondragon/medorders-backend/pkg/db/models"
	"github.com/angelmondragon/medorders-backend/pkg/enums"
	"github.com/angelmondragon/medorders-backend/pkg/types"
)

// NewSQLStore returns a store on a fresh in-memory sqlite database.
func NewSQLStore(t testing.TB) (*sqlstore.Store, *db.Client) {
	t.Helper()

	dsn := fmt.Sprintf("file:store_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := db.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	client := db.NewFromGorm(conn, config.StoreDriverSQLite)
	if err := client.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	st, err := sqlstore.New(client)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return st, client
}

// Product returns an active product with the given variants.
func Product(variants ...types.Variant) *models.Product {
	return &models.Product{
		ID:          uuid.New(),
		Name:        "Surgical Gloves",
		Description: "Latex, powder free",
		ImageRefs:   types.StringList{"products/gloves.png"},
		IsActive:    true,
		Variants:    variants,
		Version:     1,
	}
}

// OrderFor builds an order for product with one item per (size, quantity) pair
// taken from the product's variants.
func OrderFor(product *models.Product, placer types.ActorSnapshot, fulfilledBy string, status enums.OrderStatus, lines map[string]int) *models.Order {
	items := make(types.OrderItems, 0, len(lines))
	for _, v := range product.Variants {
		qty, ok := lines[v.Size]
		if !ok {
			continue
		}
		items = append(items, types.OrderItem{
			Size:           v.Size,
			UnitPricePaise: v.UnitPricePaise,
			Quantity:       qty,
			Pieces:         v.Pieces,
			LineTotalPaise: v.UnitPricePaise * int64(qty),
		})
	}
	for size, qty := range lines {
		if product.Variants.Find(size) < 0 {
			items = append(items, types.OrderItem{Size: size, Quantity: qty})
		}
	}
	now := time.Now().UTC()
	return &models.Order{
		ID:               uuid.New(),
		PlacedBy:         placer,
		PlacedByID:       placer.ID,
		FulfilledBy:      fulfilledBy,
		Product:          types.ProductSnapshot{ID: product.ID.String(), Name: product.Name, ImageRef: product.PrimaryImage()},
		ProductID:        product.ID,
		Items:            items,
		TotalAmountPaise: items.Total(),
		PaymentMode:      enums.PaymentModeDirect,
		Status:           status,
		PaymentStatus:    enums.PaymentStatusUnpaid,
		CreatedAt:        now,
		LastUpdatedAt:    now,
	}
}

// MedicalStore is a placing actor snapshot.
func MedicalStore(id string) types.ActorSnapshot {
	return types.ActorSnapshot{ID: id, Name: "Store " + id, Role: enums.RoleMedicalStore}
}

// Distributor is a placing actor snapshot for a distributor.
func Distributor(id string) types.ActorSnapshot {
	return types.ActorSnapshot{ID: id, Name: "Distributor " + id, Role: enums.RoleDistributor}
}
