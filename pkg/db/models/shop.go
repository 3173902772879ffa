package models

import "time"

// Shop is a partner storefront. At most one shop per owning user.
type Shop struct {
	ID              uint       `gorm:"column:id;primaryKey"`
	Name            string     `gorm:"column:name;not null"`
	URL             *string    `gorm:"column:url"`
	UserID          *uint      `gorm:"column:user_id;uniqueIndex:ux_shops_user"`
	User            *User      `gorm:"foreignKey:UserID"`
	AcceptingOrders bool       `gorm:"column:accepting_orders;not null;default:true"`
	Categories      []Category `gorm:"many2many:shop_categories"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
