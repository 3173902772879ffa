package basket

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
	"github.com/olegbarsky/tradeport-backend/pkg/enums"
)

// Repository owns basket persistence: the open order row and its items.
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

// FindBasket loads the user's open basket row without associations.
func (r *Repository) FindBasket(ctx context.Context, userID uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND state = ?", userID, enums.OrderStateBasket).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindBasketWithItems loads the basket with offers denormalized for the view.
func (r *Repository) FindBasketWithItems(ctx context.Context, userID uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.ProductInfo").
		Preload("Items.ProductInfo.Product").
		Preload("Items.ProductInfo.Product.Category").
		Preload("Items.ProductInfo.Shop").
		Preload("Items.ProductInfo.Parameters").
		Preload("Items.ProductInfo.Parameters.Parameter").
		Where("user_id = ? AND state = ?", userID, enums.OrderStateBasket).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateBasket inserts an empty basket order. The partial unique index
// ux_orders_active_basket rejects a second open basket for the user.
func (r *Repository) CreateBasket(ctx context.Context, userID uint) (*models.Order, error) {
	order := models.Order{UserID: userID, State: enums.OrderStateBasket}
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ProductInfoExists reports whether the offer id is known.
func (r *Repository) ProductInfoExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductInfo{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// CreateItem inserts a basket line. The (order, product_info) pair is unique.
func (r *Repository) CreateItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItemQuantity changes one line's quantity, scoped to the given
// order so a caller can never touch another user's rows.
func (r *Repository) UpdateItemQuantity(ctx context.Context, orderID, itemID uint, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ? AND order_id = ?", itemID, orderID).
		UpdateColumn("quantity", quantity)
	return res.RowsAffected, res.Error
}

// DeleteStaleBaskets drops open baskets that saw no activity since the
// cutoff, lines first so the order rows never orphan them.
func (r *Repository) DeleteStaleBaskets(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		return 0, gorm.ErrInvalidTransaction
	}
	stale := tx.WithContext(ctx).
		Model(&models.Order{}).
		Select("id").
		Where("state = ? AND updated_at < ?", enums.OrderStateBasket, cutoff)
	if err := tx.WithContext(ctx).
		Where("order_id IN (?)", stale).
		Delete(&models.OrderItem{}).Error; err != nil {
		return 0, err
	}
	result := tx.WithContext(ctx).
		Where("state = ? AND updated_at < ?", enums.OrderStateBasket, cutoff).
		Delete(&models.Order{})
	return result.RowsAffected, result.Error
}

// DeleteItems removes the given lines from the order.
func (r *Repository) DeleteItems(ctx context.Context, orderID uint, itemIDs []uint) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("order_id = ? AND id IN ?", orderID, itemIDs).
		Delete(&models.OrderItem{})
	return res.RowsAffected, res.Error
}
