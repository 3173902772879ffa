package models

// Product is the catalog-wide item definition, shared by every shop
// that lists it. Per-shop pricing and stock live on ProductInfo.
type Product struct {
	ID         uint     `gorm:"column:id;primaryKey"`
	Name       string   `gorm:"column:name;not null"`
	CategoryID uint     `gorm:"column:category_id;not null;index"`
	Category   Category `gorm:"foreignKey:CategoryID"`
}
