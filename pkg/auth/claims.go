package auth

import (
	"github.com/angelmondragon/medorders-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AccountID string
	Name      string
	Role      enums.Role
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	AccountID string     `json:"account_id"`
	Name      string     `json:"name,omitempty"`
	Role      enums.Role `json:"role"`
	jwt.RegisteredClaims
}
