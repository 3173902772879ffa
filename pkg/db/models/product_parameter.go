package models

// ProductParameter holds a parameter value for one offer. The pair
// (product_info_id, parameter_id) is unique so re-imports overwrite
// values instead of stacking duplicates.
type ProductParameter struct {
	ID            uint   `gorm:"column:id;primaryKey"`
	ProductInfoID uint   `gorm:"column:product_info_id;not null;uniqueIndex:ux_product_parameters_pair"`
	ParameterID   uint   `gorm:"column:parameter_id;not null;uniqueIndex:ux_product_parameters_pair"`
	Value         string `gorm:"column:value;not null"`

	Parameter Parameter `gorm:"foreignKey:ParameterID"`
}
