package enums

import "fmt"

// Role identifies which business role an account plays in the supply chain.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDistributor  Role = "distributor"
	RoleMedicalStore Role = "medical_store"
	// RoleSystem is never issued to accounts; it marks gateway-driven changes.
	RoleSystem Role = "system"
)

var validRoles = []Role{
	RoleAdmin,
	RoleDistributor,
	RoleMedicalStore,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a role that can be held by an account.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanPlaceOrders reports whether accounts of this role may create orders.
func (r Role) CanPlaceOrders() bool {
	return r == RoleDistributor || r == RoleMedicalStore
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
