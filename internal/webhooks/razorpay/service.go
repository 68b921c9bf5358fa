// Package razorpaywebhook reconciles Razorpay payment notifications with orders.
package razorpaywebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/medorders-backend/internal/events"
	"github.com/angelmondragon/medorders-backend/internal/orders"
	"github.com/angelmondragon/medorders-backend/internal/store"
	"github.com/angelmondragon/medorders-backend/pkg/db/models"
	"github.com/angelmondragon/medorders-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/medorders-backend/pkg/errors"
	"github.com/angelmondragon/medorders-backend/pkg/logger"
	"github.com/angelmondragon/medorders-backend/pkg/metrics"
	"github.com/angelmondragon/medorders-backend/pkg/types"
)

// Outcome describes what a delivery did. Every outcome is acknowledged with
// 200; only errors make the gateway retry.
type Outcome string

const (
	OutcomeApplied            Outcome = "applied"
	OutcomeDuplicate          Outcome = "duplicate"
	OutcomeIgnored            Outcome = "ignored"
	OutcomeOrderNotFound      Outcome = "order_not_found"
	OutcomeNotAwaitingPayment Outcome = "not_awaiting_payment"
)

// ServiceParams names the reconciler dependencies. Metrics and Now are
// optional; Now defaults to the UTC wall clock used for paidAt.
type ServiceParams struct {
	Store   store.Store
	Events  events.Publisher
	Metrics *metrics.WebhookMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

// Service applies captured payments to the order registered under the
// gateway order id, at most once per order.
type Service struct {
	store   store.Store
	events  events.Publisher
	metrics *metrics.WebhookMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService validates params and returns a reconciler. Store, Events and
// Logger are required.
func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order store required")
	}
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event publisher required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:   params.Store,
		events:  params.Events,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// HandleEvent applies a verified delivery. signature is the header value that
// authenticated it and is kept on the payment details.
func (s *Service) HandleEvent(ctx context.Context, event *Event, signature string) (Outcome, error) {
	outcome, err := s.handle(ctx, event, signature)
	name := ""
	if event != nil {
		name = event.Event
	}
	if err != nil {
		s.metrics.IncOutcome(name, "error")
	} else {
		s.metrics.IncOutcome(name, string(outcome))
	}
	return outcome, err
}

func (s *Service) handle(ctx context.Context, event *Event, signature string) (Outcome, error) {
	if event == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "razorpay event required")
	}
	ctx = s.logg.WithField(ctx, "event", event.Event)
	if event.Event != EventPaymentCaptured {
		s.logg.Info(ctx, "razorpay event ignored")
		return OutcomeIgnored, nil
	}

	payment := event.Payment()
	if payment == nil || payment.OrderID == "" {
		s.logg.Warn(ctx, "payment.captured without payment order id")
		return OutcomeIgnored, nil
	}
	ctx = s.logg.WithPayment(ctx, payment.OrderID, payment.ID)

	matches, err := s.store.FindOrdersByGatewayOrderID(ctx, payment.OrderID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find order by gateway order id")
	}
	if len(matches) == 0 {
		s.logg.Warn(ctx, "no order for captured payment")
		return OutcomeOrderNotFound, nil
	}
	if len(matches) > 1 {
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.ID.String())
		}
		s.logg.Warn(s.logg.WithField(ctx, "order_ids", ids), "gateway order id shared by several orders; applying to the earliest")
	}
	target := matches[0].ID
	ctx = s.logg.WithOrderID(ctx, target.String())

	var (
		outcome Outcome
		updated *models.Order
		from    enums.OrderStatus
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		updated = nil
		order, err := tx.GetOrder(ctx, target)
		if err != nil {
			return err
		}
		from = order.Status.Canonical()
		if alreadyPaid(order) {
			outcome = OutcomeDuplicate
			return nil
		}

		now := s.now()
		paid := enums.PaymentStatusPaid
		paymentID := payment.ID
		update := store.OrderUpdate{
			PaymentStatus: &paid,
			PaymentID:     &paymentID,
			PaymentDetails: &types.PaymentDetails{
				PaymentID:      payment.ID,
				GatewayOrderID: payment.OrderID,
				Signature:      signature,
				Method:         payment.Method,
				Captured:       payment.Captured,
				PaidAt:         now,
			},
			LastUpdatedAt: now,
		}

		switch err := orders.CheckTransition(order, orders.SystemActor(), enums.OrderStatusPaid); {
		case err == nil:
			status := enums.OrderStatusPaid
			update.Status = &status
			outcome = OutcomeApplied
		case errors.Is(err, orders.ErrInvalidTransition):
			if order.PaymentStatus == enums.PaymentStatusPaid {
				outcome = OutcomeDuplicate
				return nil
			}
			outcome = OutcomeNotAwaitingPayment
		default:
			return err
		}

		if err := tx.UpdateOrder(ctx, order.ID, update); err != nil {
			return err
		}
		update.Apply(order)
		updated = order
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logg.Warn(ctx, "order vanished before payment could be recorded")
			return OutcomeOrderNotFound, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment")
	}

	switch outcome {
	case OutcomeDuplicate:
		s.logg.Info(ctx, "payment already recorded")
	case OutcomeNotAwaitingPayment:
		s.logg.Warn(s.logg.WithField(ctx, "status", string(from)), "payment captured for order not awaiting payment; status left unchanged")
	}

	if updated != nil {
		eventType := events.TypeOrderStatusChanged
		if outcome == OutcomeNotAwaitingPayment {
			eventType = events.TypePaymentRecorded
		}
		system := orders.SystemActor()
		if err := s.events.Publish(ctx, events.OrderEvent{
			Type:          eventType,
			OrderID:       updated.ID,
			From:          from,
			To:            updated.Status,
			PaymentStatus: updated.PaymentStatus,
			PlacedByID:    updated.PlacedByID,
			FulfilledBy:   updated.FulfilledBy,
			ActorID:       system.ID,
			ActorRole:     system.Role,
			OccurredAt:    updated.LastUpdatedAt,
		}); err != nil {
			s.logg.Error(ctx, "order event delivery failed", err)
		}
	}
	return outcome, nil
}

// alreadyPaid is the replay guard: once the payment is recorded and the order
// moved past Pending Payment, later deliveries change nothing.
func alreadyPaid(order *models.Order) bool {
	if order.PaymentStatus != enums.PaymentStatusPaid {
		return false
	}
	switch order.Status.Canonical() {
	case enums.OrderStatusPaid, enums.OrderStatusShipped, enums.OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// EventKey picks the idempotency key for a delivery: the delivery id header
// when present, otherwise the payment id.
func EventKey(headerID string, event *Event) string {
	if headerID != "" {
		return headerID
	}
	if p := event.Payment(); p != nil && p.ID != "" {
		return fmt.Sprintf("payment:%s:%s", event.Event, p.ID)
	}
	return ""
}
