package payloads

import "time"

// UserRegisteredEvent asks the notification worker to send the
// confirmation email for a fresh account.
type UserRegisteredEvent struct {
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name,omitempty"`
	ConfirmToken string `json:"confirm_token"`
}

// PasswordResetRequestedEvent carries the single-use reset token to be
// mailed to the account owner.
type PasswordResetRequestedEvent struct {
	UserID     uint   `json:"user_id"`
	Email      string `json:"email"`
	ResetToken string `json:"reset_token"`
}

// OrderPlacedEvent is emitted when a basket turns into an order.
type OrderPlacedEvent struct {
	OrderID   uint      `json:"order_id"`
	UserID    uint      `json:"user_id"`
	Email     string    `json:"email"`
	ContactID uint      `json:"contact_id"`
	ItemCount int       `json:"item_count"`
	TotalSum  string    `json:"total_sum"`
	PlacedAt  time.Time `json:"placed_at"`
}
