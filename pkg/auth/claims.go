package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/olegbarsky/tradeport-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uint
	UserType enums.UserType
	ShopID   *uint
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID   uint           `json:"user_id"`
	UserType enums.UserType `json:"user_type"`
	ShopID   *uint          `json:"shop_id,omitempty"`
	jwt.RegisteredClaims
}
