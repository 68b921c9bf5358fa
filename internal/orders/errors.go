package orders

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/medorders-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/medorders-backend/pkg/errors"
)

var (
	// ErrInvalidTransition is the cause of every rejected status change.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrOrderNotFound is the cause when an order id does not resolve.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound is the cause when an order's product no longer exists.
	ErrProductNotFound = errors.New("product not found")
)

func invalidTransition(from, to enums.OrderStatus, actor Actor) error {
	return pkgerrors.Wrap(
		pkgerrors.CodeStateConflict,
		ErrInvalidTransition,
		fmt.Sprintf("cannot move order from %s to %s", from, to),
	).WithDetails(map[string]any{
		"from":       string(from),
		"to":         string(to),
		"actor_role": string(actor.Role),
	})
}

func orderNotFound() error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrOrderNotFound, "order not found")
}

func productNotFound() error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrProductNotFound, "product not found")
}
