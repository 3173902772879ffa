package models

// Parameter is a named product attribute (screen size, color, ...).
// Names are global; values attach per offer through ProductParameter.
type Parameter struct {
	ID   uint   `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;not null;uniqueIndex:ux_parameters_name"`
}
