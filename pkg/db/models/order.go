package models

import (
	"time"

	"github.com/olegbarsky/tradeport-backend/pkg/enums"
)

// Order doubles as the live basket (state "basket") and the placed
// order record. A partial unique index keeps at most one open basket
// per user; placed orders are free to accumulate.
type Order struct {
	ID     uint             `gorm:"column:id;primaryKey"`
	UserID uint             `gorm:"column:user_id;not null;index;uniqueIndex:ux_orders_active_basket,where:state = 'basket'"`
	State  enums.OrderState `gorm:"column:state;not null;default:basket"`

	ContactID *uint    `gorm:"column:contact_id"`
	Contact   *Contact `gorm:"foreignKey:ContactID"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
