package models

import "github.com/shopspring/decimal"

// ProductInfo is a shop's offer of a product: stock, pricing and the
// shop-local external id used by feed imports to address the row.
type ProductInfo struct {
	ID         uint `gorm:"column:id;primaryKey"`
	ProductID  uint `gorm:"column:product_id;not null;uniqueIndex:ux_product_infos_natural_key"`
	ShopID     uint `gorm:"column:shop_id;not null;uniqueIndex:ux_product_infos_natural_key"`
	ExternalID uint `gorm:"column:external_id;not null;uniqueIndex:ux_product_infos_natural_key"`

	Model    string          `gorm:"column:model"`
	Quantity int             `gorm:"column:quantity;not null"`
	Price    decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	PriceRRC decimal.Decimal `gorm:"column:price_rrc;type:numeric(10,2);not null"`

	Product    Product            `gorm:"foreignKey:ProductID"`
	Shop       Shop               `gorm:"foreignKey:ShopID"`
	Parameters []ProductParameter `gorm:"foreignKey:ProductInfoID"`
}
