package basket

import (
	"github.com/shopspring/decimal"

	"github.com/olegbarsky/tradeport-backend/internal/catalog"
	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
)

// AddItemInput is one line of an add-items request.
type AddItemInput struct {
	ProductInfoID uint `json:"product_info_id" validate:"required"`
	Quantity      int  `json:"quantity" validate:"required"`
}

// UpdateItemInput addresses an existing basket line by its id.
type UpdateItemInput struct {
	ID       uint `json:"id"`
	Quantity int  `json:"quantity"`
}

// ItemDTO is a basket line with the offer denormalized in.
type ItemDTO struct {
	ID          uint                   `json:"id"`
	Quantity    int                    `json:"quantity"`
	ProductInfo catalog.ProductInfoDTO `json:"product_info"`
}

// BasketDTO is the basket view with the exact decimal total.
type BasketDTO struct {
	ID       uint            `json:"id"`
	State    string          `json:"state"`
	Items    []ItemDTO       `json:"items"`
	TotalSum decimal.Decimal `json:"total_sum"`
}

func basketFromModel(order *models.Order) *BasketDTO {
	dto := &BasketDTO{
		ID:       order.ID,
		State:    order.State.String(),
		Items:    make([]ItemDTO, 0, len(order.Items)),
		TotalSum: decimal.Zero,
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
