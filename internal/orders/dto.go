package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/olegbarsky/tradeport-backend/internal/catalog"
	"github.com/olegbarsky/tradeport-backend/internal/contacts"
	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
)

// PlaceOrderInput names the delivery contact to confirm the basket with.
type PlaceOrderInput struct {
	ContactID uint `json:"contact" validate:"required"`
}

// ItemDTO is one order line with the offer denormalized in.
type ItemDTO struct {
	ID          uint                   `json:"id"`
	Quantity    int                    `json:"quantity"`
	ProductInfo catalog.ProductInfoDTO `json:"product_info"`
}

// OrderDTO is a placed order with its priced lines.
type OrderDTO struct {
	ID        uint                 `json:"id"`
	State     string               `json:"state"`
	CreatedAt time.Time            `json:"created_at"`
	Contact   *contacts.ContactDTO `json:"contact,omitempty"`
	Items     []ItemDTO            `json:"items"`
	TotalSum  decimal.Decimal      `json:"total_sum"`
}

func orderFromModel(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:        order.ID,
		State:     order.State.String(),
		CreatedAt: order.CreatedAt,
		Items:     make([]ItemDTO, 0, len(order.Items)),
		TotalSum:  decimal.Zero,
	}
	if order.Contact != nil {
		contact := contacts.FromModel(*order.Contact)
		dto.Contact = &contact
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ID:          item.ID,
			Quantity:    item.Quantity,
			ProductInfo: catalog.ProductInfoFromModel(item.ProductInfo),
		})
		line := item.ProductInfo.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		dto.TotalSum = dto.TotalSum.Add(line)
	}
	return dto
}
