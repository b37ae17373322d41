package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	IdentityID uuid.UUID
	Role       enums.UserRole
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients. Role is the
// role at mint time; authorization that depends on it re-reads the profile.
type AccessTokenClaims struct {
	IdentityID uuid.UUID      `json:"sub_id"`
	Role       enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
