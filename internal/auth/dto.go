package auth

import "github.com/olegbarsky/tradeport-backend/pkg/enums"

// RegisterRequest is the sign-up payload for buyers and partners.
type RegisterRequest struct {
	FirstName string         `json:"first_name" validate:"required"`
	LastName  string         `json:"last_name" validate:"required"`
	Email     string         `json:"email" validate:"required,email"`
	Password  string         `json:"password" validate:"required"`
	Company   string         `json:"company"`
	Position  string         `json:"position"`
	Type      enums.UserType `json:"type"`
}

// ConfirmRequest carries the emailed confirmation token back.
type ConfirmRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

// LoginRequest is the credential payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the minted access token.
type LoginResponse struct {
	Token string `json:"token"`
}

// PasswordResetRequest asks for a reset token to be emailed.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirm sets a new password using the emailed token.
type PasswordResetConfirm struct {
	Email    string `json:"email" validate:"required,email"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateAccountRequest is a partial profile update; nil fields stay put.
type UpdateAccountRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Company   *string `json:"company"`
	Position  *string `json:"position"`
	Password  *string `json:"password"`
}
