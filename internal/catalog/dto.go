package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
)

// CategoryDTO is the transport shape for a category.
type CategoryDTO struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// ShopDTO is the transport shape for a shop.
type ShopDTO struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	State bool   `json:"state"`
}

// ProductRef nests the shared product data inside an offer.
type ProductRef struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ProductInfoDTO is one shop's offer with pricing, stock and attributes.
type ProductInfoDTO struct {
	ID         uint              `json:"id"`
	Model      string            `json:"model"`
	ExternalID uint              `json:"external_id"`
	Product    ProductRef        `json:"product"`
	Shop       ShopDTO           `json:"shop"`
	Quantity   int               `json:"quantity"`
	Price      decimal.Decimal   `json:"price"`
	PriceRRC   decimal.Decimal   `json:"price_rrc"`
	Parameters map[string]string `json:"parameters"`
}

// ShopStateDTO is the partner order-acceptance toggle payload.
type ShopStateDTO struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	State bool   `json:"state"`
}

// ProductInfoFromModel converts a loaded offer row for transport. Other
// packages embed offers in their own payloads (basket and order views).
func ProductInfoFromModel(info models.ProductInfo) ProductInfoDTO {
	return productInfoFromModel(info)
}

func categoryFromModel(c models.Category) CategoryDTO {
	return CategoryDTO{ID: c.ID, Name: c.Name}
}

func shopFromModel(s models.Shop) ShopDTO {
	return ShopDTO{ID: s.ID, Name: s.Name, State: s.AcceptingOrders}
}

func productInfoFromModel(info models.ProductInfo) ProductInfoDTO {
	params := make(map[string]string, len(info.Parameters))
	for _, p := range info.Parameters {
		params[p.Parameter.Name] = p.Value
	}
	return ProductInfoDTO{
		ID:         info.ID,
		Model:      info.Model,
		ExternalID: info.ExternalID,
		Product: ProductRef{
			ID:       info.Product.ID,
			Name:     info.Product.Name,
			Category: info.Product.Category.Name,
		},
		Shop:       shopFromModel(info.Shop),
		Quantity:   info.Quantity,
		Price:      info.Price,
		PriceRRC:   info.PriceRRC,
		Parameters: params,
	}
}
