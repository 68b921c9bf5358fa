// Package store defines the persistence contract shared by the SQL and
// Firestore backends for orders, products and accounts.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/medorders-backend/pkg/db/models"
	"github.com/angelmondragon/medorders-backend/pkg/enums"
	"github.com/angelmondragon/medorders-backend/pkg/pagination"
	"github.com/angelmondragon/medorders-backend/pkg/types"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write lost an optimistic version check.
	ErrConflict = errors.New("record modified concurrently")
	// ErrAlreadyExists is returned when creating a record whose id is taken.
	ErrAlreadyExists = errors.New("record already exists")
)

// Store is the persistence boundary used by the order, product and webhook services.
type Store interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	// FindOrdersByGatewayOrderID returns every order carrying the gateway order id,
	// oldest first with ties broken by id.
	FindOrdersByGatewayOrderID(ctx context.Context, gatewayOrderID string) ([]models.Order, error)

	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)

	GetAccount(ctx context.Context, id string) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error

	// RunInTx runs fn in a single transaction. Reads made through tx observe
	// committed state and writes become visible together or not at all. fn may
	// be invoked more than once when the backend retries on contention, so it
	// must not have side effects outside tx.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Ping(ctx context.Context) error
}

// Tx is the transactional view handed to RunInTx callbacks.
type Tx interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, update OrderUpdate) error
	// SaveProduct writes product back, guarded by the version it was read at.
	// On success product.Version is advanced.
	SaveProduct(ctx context.Context, product *models.Product) error
}

// OrderUpdate lists the only order fields that may change after creation.
// Nil fields are left untouched.
type OrderUpdate struct {
	Status         *enums.OrderStatus
	PaymentStatus  *enums.PaymentStatus
	PaymentID      *string
	PaymentDetails *types.PaymentDetails
	LastUpdatedAt  time.Time
}

// Apply copies the update onto order.
func (u OrderUpdate) Apply(order *models.Order) {
	if u.Status != nil {
		order.Status = *u.Status
	}
	if u.PaymentStatus != nil {
		order.PaymentStatus = *u.PaymentStatus
	}
	if u.PaymentID != nil {
		id := *u.PaymentID
		order.PaymentID = &id
	}
	if u.PaymentDetails != nil {
		details := *u.PaymentDetails
		order.PaymentDetails = &details
	}
	if !u.LastUpdatedAt.IsZero() {
		order.LastUpdatedAt = u.LastUpdatedAt
	}
}

// OrderFilter narrows ListOrders. Empty fields match everything.
type OrderFilter struct {
	PlacedByID  string
	FulfilledBy string
	Status      enums.OrderStatus
	Limit       int
	// After resumes a newest-first listing past the given row.
	After *pagination.Cursor
}

const (
	DefaultListLimit = pagination.DefaultLimit
	MaxListLimit     = pagination.MaxLimit
)

// EffectiveLimit clamps Limit into [1, MaxListLimit].
func (f OrderFilter) EffectiveLimit() int {
	return pagination.NormalizeLimit(f.Limit)
}
