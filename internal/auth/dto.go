package auth

import (
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

// RegisterRequest is the signup payload. Everything beyond the credentials
// lands in the identity metadata consumed by provisioning.
type RegisterRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required"`
	FullName  string  `json:"full_name" validate:"omitempty,max=200"`
	Role      string  `json:"role" validate:"omitempty,oneof=buyer seller"`
	StoreName string  `json:"store_name" validate:"omitempty,max=200"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=40"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token paired with the presented access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is returned by every flow that opens or rotates a session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SessionResponse contains the tokens plus the caller's profile.
type SessionResponse struct {
	TokenPair
	Profile models.Profile `json:"profile"`
	Seller  *models.Seller `json:"seller,omitempty"`
}
