// Package sqlstore implements store.Store on gorm (postgres in production,
// sqlite for local runs and tests).
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/medorders-backend/internal/store"
	"github.com/angelmondragon/medorders-backend/pkg/db"
	"github.com/angelmondragon/medorders-backend/pkg/db/models"
)

// DefaultConflictRetries bounds how often RunInTx replays fn after losing a
// product version check.
const DefaultConflictRetries = 3

// TxRunner is satisfied by *db.Client.
type TxRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	Ping(ctx context.Context) error
}

var _ TxRunner = (*db.Client)(nil)

// Store is the gorm backed store.Store.
type Store struct {
	client  TxRunner
	repo    *repository
	retries int
}

var _ store.Store = (*Store)(nil)

// New builds a Store on the shared client.
func New(client TxRunner) (*Store, error) {
	if client == nil {
		return nil, errors.New("db client is required")
	}
	return &Store{
		client:  client,
		repo:    newRepository(client.DB()),
		retries: DefaultConflictRetries,
	}, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.repo.createOrder(ctx, order)
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.repo.getOrder(ctx, id, false)
}

func (s *Store) ListOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, error) {
	return s.repo.listOrders(ctx, filter)
}

func (s *Store) FindOrdersByGatewayOrderID(ctx context.Context, gatewayOrderID string) ([]models.Order, error) {
	return s.repo.findByGatewayOrderID(ctx, gatewayOrderID)
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	return s.repo.createProduct(ctx, product)
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.repo.getProduct(ctx, id, false)
}

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return s.repo.getAccount(ctx, id)
}

func (s *Store) SaveAccount(ctx context.Context, account *models.Account) error {
	return s.repo.saveAccount(ctx, account)
}

// RunInTx runs fn in a database transaction. Rows read through the Tx are
// locked FOR UPDATE on postgres; sqlite relies on its single writer. A lost
// product version check rolls back and replays fn against fresh state.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		err = s.client.WithTx(ctx, func(gtx *gorm.DB) error {
			return fn(ctx, &txView{repo: newRepository(gtx)})
		})
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return fmt.Errorf("transaction retries exhausted: %w", err)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

type txView struct {
	repo *repository
}

func (t *txView) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return t.repo.getOrder(ctx, id, true)
}

func (t *txView) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return t.repo.getProduct(ctx, id, true)
}

func (t *txView) UpdateOrder(ctx context.Context, id uuid.UUID, update store.OrderUpdate) error {
	return t.repo.updateOrder(ctx, id, update)
}

func (t *txView) SaveProduct(ctx context.Context, product *models.Product) error {
	return t.repo.saveProduct(ctx, product)
}

func forUpdate(q *gorm.DB, lock bool) *gorm.DB {
	if !lock {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}
