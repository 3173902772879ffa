package contacts

import "github.com/olegbarsky/tradeport-backend/pkg/db/models"

// ContactDTO is the transport shape for a delivery contact.
type ContactDTO struct {
	ID        uint   `json:"id"`
	City      string `json:"city"`
	Street    string `json:"street"`
	House     string `json:"house"`
	Structure string `json:"structure,omitempty"`
	Building  string `json:"building,omitempty"`
	Apartment string `json:"apartment,omitempty"`
	Phone     string `json:"phone"`
}

// CreateContactInput carries the fields for a new contact.
type CreateContactInput struct {
	City      string `json:"city" validate:"required"`
	Street    string `json:"street" validate:"required"`
	House     string `json:"house" validate:"required"`
	Structure string `json:"structure"`
	Building  string `json:"building"`
	Apartment string `json:"apartment"`
	Phone     string `json:"phone" validate:"required"`
}

// UpdateContactInput is a partial update; nil fields stay untouched.
type UpdateContactInput struct {
	ID        uint    `json:"id" validate:"required"`
	City      *string `json:"city"`
	Street    *string `json:"street"`
	House     *string `json:"house"`
	Structure *string `json:"structure"`
	Building  *string `json:"building"`
	Apartment *string `json:"apartment"`
	Phone     *string `json:"phone"`
}

// FromModel converts a contact row for transport. Orders embed the
// delivery contact in their views.
func FromModel(c models.Contact) ContactDTO {
	return ContactDTO{
		ID:        c.ID,
		City:      c.City,
		Street:    c.Street,
		House:     c.House,
		Structure: c.Structure,
		Building:  c.Building,
		Apartment: c.Apartment,
		Phone:     c.Phone,
	}
}
