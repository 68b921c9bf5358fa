package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/medorders-backend/internal/events"
	"github.com/angelmondragon/medorders-backend/internal/stock"
	"github.com/angelmondragon/medorders-backend/internal/store"
	"github.com/angelmondragon/medorders-backend/pkg/db/models"
	"github.com/angelmondragon/medorders-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/medorders-backend/pkg/errors"
	"github.com/angelmondragon/medorders-backend/pkg/logger"
	"github.com/angelmondragon/medorders-backend/pkg/metrics"
	"github.com/angelmondragon/medorders-backend/pkg/pagination"
	"github.com/angelmondragon/medorders-backend/pkg/razorpay"
	"github.com/angelmondragon/medorders-backend/pkg/types"
)

// PaymentGateway creates gateway orders for online payments.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
}

// Service is the order lifecycle: creation, reads and the actor driven
// status changes. Payment capture lives with the webhook reconciler.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, actor Actor, input ListInput) ([]models.Order, error)
	Ship(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error)
	// Complete decrements stock for every item and completes the order in one
	// transaction. On any failure neither the order nor the product changes.
	Complete(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error)
}

// CreateInput is a new order for one product.
type CreateInput struct {
	ProductID   uuid.UUID
	PaymentMode enums.PaymentMode
	Items       []ItemInput
}

// MaxItemQuantity caps the units of one size in a single order.
const MaxItemQuantity = 100000

var maxOrderTotalPaise = decimal.NewFromInt(math.MaxInt64)

// ItemInput requests quantity units of the variant with the given size.
type ItemInput struct {
	Size     string
	Quantity int
}

// Order list scopes for distributors, who both place and fulfil orders.
const (
	ScopePlaced     = "placed"
	ScopeFulfilling = "fulfilling"
)

// ListInput narrows List.
type ListInput struct {
	Scope  string
	Status enums.OrderStatus
	Limit  int
	After  *pagination.Cursor
}

// ServiceParams names the order service dependencies. Gateway and Metrics
// are optional; without a gateway online orders are rejected.
type ServiceParams struct {
	Store   store.Store
	Events  events.Publisher
	Gateway PaymentGateway
	Metrics *metrics.OrderMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	store   store.Store
	events  events.Publisher
	gateway PaymentGateway
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("order store required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		store:   params.Store,
		events:  params.Events,
		gateway: params.Gateway,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateInput) (*models.Order, error) {
	if !actor.Role.CanPlaceOrders() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot place orders")
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	account, err := s.store.GetAccount(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account not registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	if account.Role != actor.Role {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account role mismatch")
	}

	product, err := s.store.GetProduct(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, productNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	items, err := priceItems(product, input.Items)
	if err != nil {
		return nil, err
	}

	name := account.Name
	if name == "" {
		name = actor.Name
	}
	now := s.now()
	order := &models.Order{
		ID:          uuid.New(),
		PlacedBy:    types.ActorSnapshot{ID: actor.ID, Name: name, Role: actor.Role},
		PlacedByID:  actor.ID,
		FulfilledBy: ResolveFulfiller(account),
		Product: types.ProductSnapshot{
			ID:       product.ID.String(),
			Name:     product.Name,
			ImageRef: product.PrimaryImage(),
		},
		ProductID:        product.ID,
		Items:            items,
		TotalAmountPaise: items.Total(),
		PaymentMode:      input.PaymentMode,
		Status:           input.PaymentMode.InitialStatus(),
		PaymentStatus:    enums.PaymentStatusUnpaid,
		CreatedAt:        now,
		LastUpdatedAt:    now,
	}

	if input.PaymentMode == enums.PaymentModeOnline {
		if s.gateway == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "online payments are not configured")
		}
		gatewayOrder, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
			AmountPaise: order.TotalAmountPaise,
			Receipt:     ReceiptFor(order.ID),
			Notes:       map[string]string{"order_id": order.ID.String()},
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment order")
		}
		order.RazorpayOrderID = &gatewayOrder.ID
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	s.publish(ctx, events.OrderEvent{
		Type:          events.TypeOrderCreated,
		OrderID:       order.ID,
		To:            order.Status,
		PaymentStatus: order.PaymentStatus,
		PlacedByID:    order.PlacedByID,
		FulfilledBy:   order.FulfilledBy,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		OccurredAt:    now,
	})
	return order, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, "load order")
	}
	if !CanView(order, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not visible to this account")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor Actor, input ListInput) ([]models.Order, error) {
	filter := store.OrderFilter{Status: input.Status, Limit: input.Limit, After: input.After}
	switch actor.Role {
	case enums.RoleAdmin:
		if input.Scope == ScopeFulfilling {
			filter.FulfilledBy = AdminFulfiller
		}
	case enums.RoleDistributor:
		if input.Scope == ScopePlaced {
			filter.PlacedByID = actor.ID
		} else {
			filter.FulfilledBy = actor.ID
		}
	case enums.RoleMedicalStore:
		filter.PlacedByID = actor.ID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot list orders")
	}

	orders, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) Ship(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, actor, id, enums.OrderStatusShipped, nil)
}

func (s *service) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, actor, id, enums.OrderStatusCancelled, nil)
}

func (s *service) Complete(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, actor, id, enums.OrderStatusCompleted, s.reserveStock)
}

// reserveStock re-reads the product inside the transaction and writes the
// decremented variants.
func (s *service) reserveStock(ctx context.Context, tx store.Tx, order *models.Order, now time.Time) error {
	product, err := tx.GetProduct(ctx, order.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return productNotFound()
		}
		return err
	}
	variants, err := stock.Decrement(product.Variants, stock.LinesFromItems(order.Items))
	if err != nil {
		return err
	}
	product.Variants = variants
	product.UpdatedAt = now
	return tx.SaveProduct(ctx, product)
}

type sideEffect func(ctx context.Context, tx store.Tx, order *models.Order, now time.Time) error

// transition runs one validated status change in a store transaction. The
// order is re-read inside the transaction so a concurrent change is seen.
func (s *service) transition(ctx context.Context, actor Actor, id uuid.UUID, to enums.OrderStatus, effect sideEffect) (*models.Order, error) {
	ctx = s.logg.WithOrderID(ctx, id.String())
	started := time.Now()

	var (
		updated *models.Order
		from    enums.OrderStatus
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		order, err := tx.GetOrder(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return orderNotFound()
			}
			return err
		}
		from = order.Status.Canonical()
		if err := CheckTransition(order, actor, to); err != nil {
			return err
		}

		now := s.now()
		if effect != nil {
			if err := effect(ctx, tx, order, now); err != nil {
				return err
			}
		}

		update := store.OrderUpdate{Status: &to, LastUpdatedAt: now}
		if err := tx.UpdateOrder(ctx, order.ID, update); err != nil {
			return err
		}
		update.Apply(order)
		updated = order
		return nil
	})
	s.metrics.ObserveTransaction(strings.ToLower(string(to)), time.Since(started))
	if err != nil {
		result := metrics.ResultFailed
		if pkgerrors.As(err) != nil {
			result = metrics.ResultRejected
		}
		s.metrics.ObserveTransition(string(from), string(to), result)
		// Counted once per call; the transaction callback may have replayed.
		if reason, ok := completionFailureReason(err); ok {
			s.metrics.IncCompletionFailure(reason)
		}
		return nil, mapStoreErr(err, "update order")
	}
	s.metrics.ObserveTransition(string(from), string(to), metrics.ResultApplied)

	s.publish(ctx, events.OrderEvent{
		Type:          events.TypeOrderStatusChanged,
		OrderID:       updated.ID,
		From:          from,
		To:            updated.Status,
		PaymentStatus: updated.PaymentStatus,
		PlacedByID:    updated.PlacedByID,
		FulfilledBy:   updated.FulfilledBy,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		OccurredAt:    updated.LastUpdatedAt,
	})
	return updated, nil
}

// publish runs after commit. Subscriber failures are logged; the change stands.
func (s *service) publish(ctx context.Context, event events.OrderEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "event_type", string(event.Type)), "order event delivery failed", err)
	}
}

// ResolveFulfiller picks who fulfils an order placed by account: a medical
// store's mapped distributor, otherwise the admin.
func ResolveFulfiller(account *models.Account) string {
	if account == nil || account.Role != enums.RoleMedicalStore {
		return AdminFulfiller
	}
	if account.DistributorID == nil || strings.TrimSpace(*account.DistributorID) == "" {
		return AdminFulfiller
	}
	return strings.TrimSpace(*account.DistributorID)
}

// ReceiptFor is the gateway receipt for an order.
func ReceiptFor(id uuid.UUID) string {
	return "receipt_order_" + id.String()
}

// CanView reports whether actor may read order.
func CanView(order *models.Order, actor Actor) bool {
	return actor.Role == enums.RoleAdmin || IsPlacer(order, actor) || IsFulfiller(order, actor)
}

func validateCreate(input CreateInput) error {
	if input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if !input.PaymentMode.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment mode must be direct or online")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	seen := make(map[string]struct{}, len(input.Items))
	for _, item := range input.Items {
		size := strings.TrimSpace(item.Size)
		if size == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "item size required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity for size %s must be positive", size))
		}
		if item.Quantity > MaxItemQuantity {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity for size %s exceeds %d", size, MaxItemQuantity)).
				WithDetails(map[string]any{"size": size, "max": MaxItemQuantity})
		}
		if _, dup := seen[size]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size %s listed more than once", size))
		}
		seen[size] = struct{}{}
	}
	return nil
}

// priceItems snapshots price and pieces from the live variants. Line totals
// and their sum are computed in decimal and rejected once they leave int64.
func priceItems(product *models.Product, inputs []ItemInput) (types.OrderItems, error) {
	items := make(types.OrderItems, 0, len(inputs))
	total := decimal.Zero
	for _, in := range inputs {
		size := strings.TrimSpace(in.Size)
		idx := product.Variants.Find(size)
		if idx < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product has no size %s", size)).
				WithDetails(map[string]any{"size": size})
		}
		v := product.Variants[idx]
		line := decimal.NewFromInt(v.UnitPricePaise).Mul(decimal.NewFromInt(int64(in.Quantity)))
		total = total.Add(line)
		if total.GreaterThan(maxOrderTotalPaise) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total is too large").
				WithDetails(map[string]any{"size": size, "quantity": in.Quantity})
		}
		items = append(items, types.OrderItem{
			Size:           v.Size,
			UnitPricePaise: v.UnitPricePaise,
			Quantity:       in.Quantity,
			Pieces:         v.Pieces,
			LineTotalPaise: line.IntPart(),
		})
	}
	return items, nil
}

// completionFailureReason labels stock check rejections. Other errors are not
// completion failures.
func completionFailureReason(err error) (string, bool) {
	var insufficient *stock.InsufficientStockError
	var missing *stock.VariantNotFoundError
	switch {
	case errors.As(err, &insufficient):
		return "insufficient_stock", true
	case errors.As(err, &missing):
		return "variant_not_found", true
	default:
		return "", false
	}
}

// mapStoreErr keeps coded errors and turns everything else into a retryable
// dependency failure.
func mapStoreErr(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	if errors.Is(err, store.ErrNotFound) {
		return orderNotFound()
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
