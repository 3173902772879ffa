package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
	"github.com/olegbarsky/tradeport-backend/pkg/enums"
)

// Repository owns the placed-order side of the orders table.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func withOrderAssociations(qb *gorm.DB) *gorm.DB {
	return qb.
		Preload("Contact").
		Preload("Items").
		Preload("Items.ProductInfo").
		Preload("Items.ProductInfo.Product").
		Preload("Items.ProductInfo.Product.Category").
		Preload("Items.ProductInfo.Shop").
		Preload("Items.ProductInfo.Parameters").
		Preload("Items.ProductInfo.Parameters.Parameter")
}

// FindBasketWithItems loads the user's open basket and its lines.
func (r *Repository) FindBasketWithItems(ctx context.Context, userID uint) (*models.Order, error) {
	var order models.Order
	err := withOrderAssociations(r.db.WithContext(ctx)).
		Where("user_id = ? AND state = ?", userID, enums.OrderStateBasket).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Place flips the basket into a placed order, setting the delivery
// contact in the same statement. The state predicate makes a repeated
// placement a no-op reported through the rows-affected count.
func (r *Repository) Place(ctx context.Context, orderID, contactID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND state = ?", orderID, enums.OrderStateBasket).
		Updates(map[string]any{
			"state":      enums.OrderStateNew,
			"contact_id": contactID,
		})
	return res.RowsAffected, res.Error
}

// ListForBuyer returns the user's placed orders, newest first.
func (r *Repository) ListForBuyer(ctx context.Context, userID uint) ([]models.Order, error) {
	var rows []models.Order
	err := withOrderAssociations(r.db.WithContext(ctx)).
		Where("user_id = ? AND state <> ?", userID, enums.OrderStateBasket).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// FindPlacedForBuyer loads one placed order owned by the user.
func (r *Repository) FindPlacedForBuyer(ctx context.Context, orderID, userID uint) (*models.Order, error) {
	var order models.Order
	err := withOrderAssociations(r.db.WithContext(ctx)).
		Where("id = ? AND user_id = ? AND state <> ?", orderID, userID, enums.OrderStateBasket).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListForShop returns placed orders containing at least one line from
// the given shop.
func (r *Repository) ListForShop(ctx context.Context, shopID uint) ([]models.Order, error) {
	var rows []models.Order
	err := withOrderAssociations(r.db.WithContext(ctx)).
		Where("state <> ?", enums.OrderStateBasket).
		Where("EXISTS (SELECT 1 FROM order_items oi JOIN product_infos pi ON pi.id = oi.product_info_id WHERE oi.order_id = orders.id AND pi.shop_id = ?)", shopID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// FindContactOwned loads a contact only when it belongs to the user.
func (r *Repository) FindContactOwned(ctx context.Context, contactID, userID uint) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", contactID, userID).
		First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}
