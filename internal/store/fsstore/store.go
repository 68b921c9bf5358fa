// Package fsstore implements store.Store on Cloud Firestore. Documents keep the
// camelCase layout the mobile clients read.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/medorders-backend/internal/store"
	"github.com/angelmondragon/medorders-backend/pkg/config"
	"github.com/angelmondragon/medorders-backend/pkg/db/models"
)

const (
	ordersCollection   = "orders"
	productsCollection = "products"
	accountsCollection = "users"
)

// Store is the Firestore backed store.Store.
type Store struct {
	client *firestore.Client
}

var _ store.Store = (*Store)(nil)

// NewClient opens a Firestore client for the configured project. The
// credentials file is optional; application default credentials and the
// emulator are honoured otherwise.
func NewClient(ctx context.Context, cfg config.GCPConfig) (*firestore.Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("gcp project id is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return client, nil
}

// New wraps an open Firestore client.
func New(client *firestore.Client) (*Store, error) {
	if client == nil {
		return nil, errors.New("firestore client is required")
	}
	return &Store{client: client}, nil
}

func (s *Store) orders() *firestore.CollectionRef {
	return s.client.Collection(ordersCollection)
}

func (s *Store) products() *firestore.CollectionRef {
	return s.client.Collection(productsCollection)
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	_, err := s.orders().Doc(order.ID.String()).Create(ctx, order)
	if status.Code(err) == codes.AlreadyExists {
		return store.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	snap, err := s.orders().Doc(id.String()).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return decodeOrder(snap)
}

func (s *Store) ListOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, error) {
	q := s.orders().Query
	if filter.PlacedByID != "" {
		q = q.Where("placedById", "==", filter.PlacedByID)
	}
	if filter.FulfilledBy != "" {
		q = q.Where("fulfilledBy", "==", filter.FulfilledBy)
	}
	if filter.Status != "" {
		q = q.Where("status", "==", string(filter.Status.Canonical()))
	}
	q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
	if c := filter.After; c != nil {
		q = q.StartAfter(c.CreatedAt, c.ID.String())
	}
	return collectOrders(q.Limit(filter.EffectiveLimit()).Documents(ctx))
}

// FindOrdersByGatewayOrderID sorts in memory so no composite index is needed.
func (s *Store) FindOrdersByGatewayOrderID(ctx context.Context, gatewayOrderID string) ([]models.Order, error) {
	orders, err := collectOrders(s.orders().Where("razorpayOrderId", "==", gatewayOrderID).Documents(ctx))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].ID.String() < orders[j].ID.String()
	})
	return orders, nil
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.Version == 0 {
		product.Version = 1
	}
	_, err := s.products().Doc(product.ID.String()).Create(ctx, product)
	if status.Code(err) == codes.AlreadyExists {
		return store.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	snap, err := s.products().Doc(id.String()).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return decodeProduct(snap)
}

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	snap, err := s.client.Collection(accountsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	var account models.Account
	if err := snap.DataTo(&account); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", id, err)
	}
	account.ID = snap.Ref.ID
	return &account, nil
}

func (s *Store) SaveAccount(ctx context.Context, account *models.Account) error {
	_, err := s.client.Collection(accountsCollection).Doc(account.ID).Set(ctx, account)
	return err
}

// RunInTx uses Firestore's optimistic transactions; the client replays fn
// when a document read in the transaction changed before commit.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		return fn(ctx, &txView{store: s, tx: ftx})
	})
}

// Ping reads a non-existent document; NotFound proves the backend answered.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collection("_health").Doc("ping").Get(ctx)
	if err == nil || status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

type txView struct {
	store *Store
	tx    *firestore.Transaction
}

func (t *txView) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	snap, err := t.tx.Get(t.store.orders().Doc(id.String()))
	if err != nil {
		return nil, translate(err)
	}
	return decodeOrder(snap)
}

func (t *txView) GetProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	snap, err := t.tx.Get(t.store.products().Doc(id.String()))
	if err != nil {
		return nil, translate(err)
	}
	return decodeProduct(snap)
}

func (t *txView) UpdateOrder(_ context.Context, id uuid.UUID, update store.OrderUpdate) error {
	updates := []firestore.Update{
		{Path: "lastUpdatedAt", Value: update.LastUpdatedAt},
	}
	if update.Status != nil {
		updates = append(updates, firestore.Update{Path: "status", Value: string(update.Status.Canonical())})
	}
	if update.PaymentStatus != nil {
		updates = append(updates, firestore.Update{Path: "paymentStatus", Value: string(*update.PaymentStatus)})
	}
	if update.PaymentID != nil {
		updates = append(updates, firestore.Update{Path: "paymentId", Value: *update.PaymentID})
	}
	if update.PaymentDetails != nil {
		updates = append(updates, firestore.Update{Path: "paymentDetails", Value: *update.PaymentDetails})
	}
	return translate(t.tx.Update(t.store.orders().Doc(id.String()), updates))
}

// SaveProduct needs no version precondition: the transaction already read the
// document, so a concurrent write aborts and replays it.
func (t *txView) SaveProduct(_ context.Context, product *models.Product) error {
	next := product.Version + 1
	err := t.tx.Update(t.store.products().Doc(product.ID.String()), []firestore.Update{
		{Path: "name", Value: product.Name},
		{Path: "description", Value: product.Description},
		{Path: "imageRefs", Value: []string(product.ImageRefs)},
		{Path: "isActive", Value: product.IsActive},
		{Path: "variants", Value: product.Variants},
		{Path: "version", Value: next},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return translate(err)
	}
	product.Version = next
	return nil
}

func collectOrders(iter *firestore.DocumentIterator) ([]models.Order, error) {
	defer iter.Stop()
	var out []models.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		order, err := decodeOrder(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *order)
	}
}

func decodeOrder(snap *firestore.DocumentSnapshot) (*models.Order, error) {
	var order models.Order
	if err := snap.DataTo(&order); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
	}
	id, err := uuid.Parse(snap.Ref.ID)
	if err != nil {
		return nil, fmt.Errorf("order id %q: %w", snap.Ref.ID, err)
	}
	order.ID = id
	if pid, err := uuid.Parse(order.Product.ID); err == nil {
		order.ProductID = pid
	}
	return &order, nil
}

func decodeProduct(snap *firestore.DocumentSnapshot) (*models.Product, error) {
	var product models.Product
	if err := snap.DataTo(&product); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", snap.Ref.ID, err)
	}
	id, err := uuid.Parse(snap.Ref.ID)
	if err != nil {
		return nil, fmt.Errorf("product id %q: %w", snap.Ref.ID, err)
	}
	product.ID = id
	return &product, nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return store.ErrNotFound
	}
	return err
}
