package orders

import (
	"github.com/angelmondragon/medorders-backend/pkg/db/models"
	"github.com/angelmondragon/medorders-backend/pkg/enums"
)

type party int

const (
	partySystem party = iota
	partyFulfiller
	partyFulfillerOrPlacer
)

type transition struct {
	from enums.OrderStatus
	to   enums.OrderStatus
	by   party
}

var transitions = []transition{
	{from: enums.OrderStatusPendingPayment, to: enums.OrderStatusPaid, by: partySystem},
	{from: enums.OrderStatusPending, to: enums.OrderStatusShipped, by: partyFulfiller},
	{from: enums.OrderStatusPaid, to: enums.OrderStatusShipped, by: partyFulfiller},
	{from: enums.OrderStatusShipped, to: enums.OrderStatusCompleted, by: partyFulfiller},
	{from: enums.OrderStatusPending, to: enums.OrderStatusCancelled, by: partyFulfillerOrPlacer},
}

// IsFulfiller reports whether actor fulfils order: the admin for admin
// orders, otherwise the distributor named by fulfilledBy.
func IsFulfiller(order *models.Order, actor Actor) bool {
	if order == nil {
		return false
	}
	switch actor.Role {
	case enums.RoleAdmin:
		return order.FulfilledBy == AdminFulfiller
	case enums.RoleDistributor:
		return actor.ID != "" && order.FulfilledBy == actor.ID
	default:
		return false
	}
}

// IsPlacer reports whether actor placed order.
func IsPlacer(order *models.Order, actor Actor) bool {
	return order != nil && actor.ID != "" && !actor.IsSystem() && order.PlacedByID == actor.ID
}

func (p party) allows(order *models.Order, actor Actor) bool {
	switch p {
	case partySystem:
		return actor.IsSystem()
	case partyFulfiller:
		return IsFulfiller(order, actor)
	case partyFulfillerOrPlacer:
		return IsFulfiller(order, actor) || IsPlacer(order, actor)
	default:
		return false
	}
}

// CheckTransition validates moving order to the target status on behalf of
// actor. The stored status is compared case-insensitively. Any pair outside
// the transition table fails with ErrInvalidTransition.
func CheckTransition(order *models.Order, actor Actor, to enums.OrderStatus) error {
	from := order.Status.Canonical()
	to = to.Canonical()
	for _, t := range transitions {
		if t.from == from && t.to == to && t.by.allows(order, actor) {
			return nil
		}
	}
	return invalidTransition(from, to, actor)
}

// AllowedTransitions lists the statuses actor may move order to next.
func AllowedTransitions(order *models.Order, actor Actor) []enums.OrderStatus {
	from := order.Status.Canonical()
	var out []enums.OrderStatus
	for _, t := range transitions {
		if t.from == from && t.by.allows(order, actor) {
			out = append(out, t.to)
		}
	}
	return out
}
