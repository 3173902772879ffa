package models

// Category groups products; a category can be carried by many shops.
type Category struct {
	ID    uint   `gorm:"column:id;primaryKey"`
	Name  string `gorm:"column:name;not null"`
	Shops []Shop `gorm:"many2many:shop_categories"`
}
