package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/medorders-backend/api/middleware"
	"github.com/angelmondragon/medorders-backend/api/responses"
	"github.com/angelmondragon/medorders-backend/api/validators"
	internalorders "github.com/angelmondragon/medorders-backend/internal/orders"
	"github.com/angelmondragon/medorders-backend/internal/store"
	"github.com/angelmondragon/medorders-backend/pkg/config"
	"github.com/angelmondragon/medorders-backend/pkg/db/models"
	"github.com/angelmondragon/medorders-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/medorders-backend/pkg/errors"
	"github.com/angelmondragon/medorders-backend/pkg/logger"
	"github.com/angelmondragon/medorders-backend/pkg/pagination"
)

// Create places an order for the authenticated medical store or distributor.
func Create(svc internalorders.Service, gateway config.RazorpayConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := createOrderResponse{Order: newOrderResponse(order)}
		if order.RazorpayOrderID != nil {
			resp.Checkout = &checkoutResponse{
				KeyID:       gateway.KeyID,
				OrderID:     *order.RazorpayOrderID,
				AmountPaise: order.TotalAmountPaise,
				Currency:    gateway.Currency,
			}
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// List returns the orders the caller placed or fulfils, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", store.DefaultListLimit, 1, store.MaxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scope, err := validators.ParseQueryOneOf(r, "scope", internalorders.ScopePlaced, internalorders.ScopeFulfilling)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseQueryValue(r, "status", enums.ParseOrderStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		after, err := validators.ParseQueryValue(r, "cursor", pagination.ParseCursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := internalorders.ListInput{Limit: limit, Scope: scope, Status: status, After: after}

		list, err := svc.List(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := listOrdersResponse{Orders: make([]orderResponse, 0, len(list))}
		for i := range list {
			out.Orders = append(out.Orders, newOrderResponse(&list[i]))
		}
		// a full page may have more behind it
		if n := len(list); n > 0 && n == limit {
			last := list[n-1]
			out.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		}
		responses.WriteSuccess(w, out)
	}
}

// Detail returns one order visible to the caller.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type transition func(ctx context.Context, actor internalorders.Actor, id uuid.UUID) (*models.Order, error)

// Ship moves a Pending or Paid order to Shipped.
func Ship(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return statusAction(nil, logg, "ship")
	}
	return statusAction(svc.Ship, logg, "ship")
}

// Complete runs the stock reservation and completes a Shipped order.
func Complete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return statusAction(nil, logg, "complete")
	}
	return statusAction(svc.Complete, logg, "complete")
}

// Cancel cancels a Pending order.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return statusAction(nil, logg, "cancel")
	}
	return statusAction(svc.Cancel, logg, "cancel")
}

func statusAction(apply transition, logg *logger.Logger, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if apply == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(logg.WithOrderID(ctx, orderID.String()), "action", action)
		}

		order, err := apply(ctx, actor, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(ctx, "status", string(order.Status)), "order status updated")
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	id := middleware.AccountIDFromContext(r.Context())
	role := middleware.RoleFromContext(r.Context())
	if id == "" || role == "" {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing")
	}
	return internalorders.Actor{
		ID:   id,
		Name: middleware.NameFromContext(r.Context()),
		Role: role,
	}, nil
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}
