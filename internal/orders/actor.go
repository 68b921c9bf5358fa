package orders

import "github.com/angelmondragon/medorders-backend/pkg/enums"

// AdminFulfiller is the fulfilledBy sentinel for orders the admin fulfils.
const AdminFulfiller = "admin"

// Actor is whoever is asking for an order change. It is always passed
// explicitly; services never read identity from ambient state.
type Actor struct {
	ID   string
	Name string
	Role enums.Role
}

// SystemActor is the identity used for gateway driven changes.
func SystemActor() Actor {
	return Actor{ID: "razorpay", Name: "Payment gateway", Role: enums.RoleSystem}
}

func (a Actor) IsSystem() bool {
	return a.Role == enums.RoleSystem
}
