package models

import (
	"time"

	"github.com/olegbarsky/tradeport-backend/pkg/enums"
)

// User is a marketplace account, either a buyer or a shop partner.
type User struct {
	ID           uint           `gorm:"column:id;primaryKey"`
	Email        string         `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	FirstName    string         `gorm:"column:first_name"`
	LastName     string         `gorm:"column:last_name"`
	Company      string         `gorm:"column:company"`
	Position     string         `gorm:"column:position"`
	Type         enums.UserType `gorm:"column:type;not null;default:'buyer'"`
	IsActive     bool           `gorm:"column:is_active;not null;default:false"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
