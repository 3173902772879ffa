package models

import "time"

// Contact is a delivery address plus phone owned by one user.
type Contact struct {
	ID     uint `gorm:"column:id;primaryKey"`
	UserID uint `gorm:"column:user_id;not null;index"`

	City      string `gorm:"column:city;not null"`
	Street    string `gorm:"column:street;not null"`
	House     string `gorm:"column:house"`
	Structure string `gorm:"column:structure"`
	Building  string `gorm:"column:building"`
	Apartment string `gorm:"column:apartment"`
	Phone     string `gorm:"column:phone;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
