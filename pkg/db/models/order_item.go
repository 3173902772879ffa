package models

// OrderItem is one offer line inside a basket or order. The pair
// (order_id, product_info_id) is unique: the same offer cannot be
// added to a basket twice, quantity updates go through the existing
// row instead.
type OrderItem struct {
	ID            uint `gorm:"column:id;primaryKey"`
	OrderID       uint `gorm:"column:order_id;not null;uniqueIndex:ux_order_items_order_product"`
	ProductInfoID uint `gorm:"column:product_info_id;not null;uniqueIndex:ux_order_items_order_product"`
	Quantity      int  `gorm:"column:quantity;not null"`

	ProductInfo ProductInfo `gorm:"foreignKey:ProductInfoID"`
}
