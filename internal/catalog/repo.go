package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
)

// ListFilter narrows catalog listings.
type ListFilter struct {
	ShopID     *uint
	CategoryID *uint
}

// Repository wires together catalog persistence helpers.
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

// UpsertShopForUser finds or creates the shop owned by the user,
// refreshing name and feed URL on every import.
func (r *Repository) UpsertShopForUser(ctx context.Context, userID uint, name string, url *string) (*models.Shop, bool, error) {
	name = strings.TrimSpace(name)
	var shop models.Shop
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&shop).Error
	if err == nil {
		updates := map[string]any{"name": name}
		if url != nil {
			updates["url"] = *url
		}
		if err := r.db.WithContext(ctx).Model(&shop).Updates(updates).Error; err != nil {
			return nil, false, err
		}
		shop.Name = name
		if url != nil {
			shop.URL = url
		}
		return &shop, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	shop = models.Shop{Name: name, URL: url, UserID: &userID, AcceptingOrders: true}
	if err := r.db.WithContext(ctx).Create(&shop).Error; err != nil {
		return nil, false, err
	}
	return &shop, true, nil
}

// UpsertCategory finds or creates a category by name.
func (r *Repository) UpsertCategory(ctx context.Context, name string) (*models.Category, bool, error) {
	name = strings.TrimSpace(name)
	var cat models.Category
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&cat).Error
	if err == nil {
		return &cat, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	cat = models.Category{Name: name}
	if err := r.db.WithContext(ctx).Create(&cat).Error; err != nil {
		return nil, false, err
	}
	return &cat, true, nil
}

// LinkShopCategory records that the shop carries the category.
func (r *Repository) LinkShopCategory(ctx context.Context, shopID, categoryID uint) error {
	shop := models.Shop{ID: shopID}
	return r.db.WithContext(ctx).
		Model(&shop).
		Association("Categories").
		Append(&models.Category{ID: categoryID})
}

// UpsertProduct finds or creates the shared product by name and category.
func (r *Repository) UpsertProduct(ctx context.Context, name string, categoryID uint) (*models.Product, bool, error) {
	name = strings.TrimSpace(name)
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("name = ? AND category_id = ?", name, categoryID).
		First(&product).Error
	if err == nil {
		return &product, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	product = models.Product{Name: name, CategoryID: categoryID}
	if err := r.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, false, err
	}
	return &product, true, nil
}

// UpsertProductInfo creates the offer or refreshes stock and pricing
// when the (product, shop, external_id) key already exists.
func (r *Repository) UpsertProductInfo(ctx context.Context, info *models.ProductInfo) (*models.ProductInfo, bool, error) {
	var existing models.ProductInfo
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND shop_id = ? AND external_id = ?", info.ProductID, info.ShopID, info.ExternalID).
		First(&existing).Error
	if err == nil {
		updates := map[string]any{
			"model":     info.Model,
			"quantity":  info.Quantity,
			"price":     info.Price,
			"price_rrc": info.PriceRRC,
		}
		if err := r.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
			return nil, false, err
		}
		existing.Model = info.Model
		existing.Quantity = info.Quantity
		existing.Price = info.Price
		existing.PriceRRC = info.PriceRRC
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if err := r.db.WithContext(ctx).Create(info).Error; err != nil {
		return nil, false, err
	}
	return info, true, nil
}

// DeleteProductInfosByShop removes every offer the shop has listed.
func (r *Repository) DeleteProductInfosByShop(ctx context.Context, shopID uint) error {
	tx := r.db.WithContext(ctx)
	if err := tx.
		Where("product_info_id IN (?)", tx.Session(&gorm.Session{NewDB: true}).
			Model(&models.ProductInfo{}).
			Select("id").
			Where("shop_id = ?", shopID)).
		Delete(&models.ProductParameter{}).Error; err != nil {
		return err
	}
	return tx.Where("shop_id = ?", shopID).Delete(&models.ProductInfo{}).Error
}

// UpsertParameter finds or creates a parameter name.
func (r *Repository) UpsertParameter(ctx context.Context, name string) (*models.Parameter, bool, error) {
	name = strings.TrimSpace(name)
	var param models.Parameter
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&param).Error
	if err == nil {
		return &param, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	param = models.Parameter{Name: name}
	if err := r.db.WithContext(ctx).Create(&param).Error; err != nil {
		return nil, false, err
	}
	return &param, true, nil
}

// UpsertProductParameter creates the attribute pair or overwrites its value.
func (r *Repository) UpsertProductParameter(ctx context.Context, productInfoID, parameterID uint, value string) (*models.ProductParameter, bool, error) {
	var pair models.ProductParameter
	err := r.db.WithContext(ctx).
		Where("product_info_id = ? AND parameter_id = ?", productInfoID, parameterID).
		First(&pair).Error
	if err == nil {
		if pair.Value != value {
			if err := r.db.WithContext(ctx).Model(&pair).UpdateColumn("value", value).Error; err != nil {
				return nil, false, err
			}
			pair.Value = value
		}
		return &pair, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	pair = models.ProductParameter{ProductInfoID: productInfoID, ParameterID: parameterID, Value: value}
	if err := r.db.WithContext(ctx).Create(&pair).Error; err != nil {
		return nil, false, err
	}
	return &pair, true, nil
}

// DeleteStaleProductParameters drops attribute pairs the feed no longer carries.
func (r *Repository) DeleteStaleProductParameters(ctx context.Context, productInfoID uint, keepParameterIDs []uint) error {
	qb := r.db.WithContext(ctx).Where("product_info_id = ?", productInfoID)
	if len(keepParameterIDs) > 0 {
		qb = qb.Where("parameter_id NOT IN ?", keepParameterIDs)
	}
	return qb.Delete(&models.ProductParameter{}).Error
}

// DeleteStaleProductInfos removes the shop's offers whose external id is
// absent from the new feed, parameters included. Returns rows removed.
func (r *Repository) DeleteStaleProductInfos(ctx context.Context, shopID uint, keepExternalIDs []uint) (int64, error) {
	tx := r.db.WithContext(ctx)
	stale := tx.Session(&gorm.Session{NewDB: true}).
		Model(&models.ProductInfo{}).
		Select("id").
		Where("shop_id = ?", shopID)
	if len(keepExternalIDs) > 0 {
		stale = stale.Where("external_id NOT IN ?", keepExternalIDs)
	}
	if err := tx.Where("product_info_id IN (?)", stale).Delete(&models.ProductParameter{}).Error; err != nil {
		return 0, err
	}
	del := tx.Where("shop_id = ?", shopID)
	if len(keepExternalIDs) > 0 {
		del = del.Where("external_id NOT IN ?", keepExternalIDs)
	}
	res := del.Delete(&models.ProductInfo{})
	return res.RowsAffected, res.Error
}

// ReplaceProductParameters replaces all attribute values for the offer.
func (r *Repository) ReplaceProductParameters(ctx context.Context, productInfoID uint, values []models.ProductParameter) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_info_id = ?", productInfoID).Delete(&models.ProductParameter{}).Error; err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	return tx.Create(&values).Error
}

// ListProductInfos returns offers from shops currently accepting
// orders, with product, shop and parameter associations loaded.
func (r *Repository) ListProductInfos(ctx context.Context, filter ListFilter) ([]models.ProductInfo, error) {
	qb := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Category").
		Preload("Shop").
		Preload("Parameters").
		Preload("Parameters.Parameter").
		Joins("JOIN shops ON shops.id = product_infos.shop_id").
		Where("shops.accepting_orders = ?", true)

	if filter.ShopID != nil {
		qb = qb.Where("product_infos.shop_id = ?", *filter.ShopID)
	}
	if filter.CategoryID != nil {
		qb = qb.Joins("JOIN products ON products.id = product_infos.product_id").
			Where("products.category_id = ?", *filter.CategoryID)
	}

	var rows []models.ProductInfo
	err := qb.Order("product_infos.id ASC").Find(&rows).Error
	return rows, err
}

// FindProductInfoByID loads a single offer with associations.
func (r *Repository) FindProductInfoByID(ctx context.Context, id uint) (*models.ProductInfo, error) {
	var info models.ProductInfo
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Category").
		Preload("Shop").
		Preload("Parameters").
		Preload("Parameters.Parameter").
		First(&info, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ListCategories returns all categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// ListShops returns shops currently accepting orders.
func (r *Repository) ListShops(ctx context.Context) ([]models.Shop, error) {
	var rows []models.Shop
	err := r.db.WithContext(ctx).
		Where("accepting_orders = ?", true).
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

// FindShopByUserID loads the shop owned by the partner user.
func (r *Repository) FindShopByUserID(ctx context.Context, userID uint) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// FindShopByName loads a shop by its exact name.
func (r *Repository) FindShopByName(ctx context.Context, name string) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// SetShopAcceptingOrders flips the partner order-acceptance toggle.
func (r *Repository) SetShopAcceptingOrders(ctx context.Context, shopID uint, accepting bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id = ?", shopID).
		UpdateColumn("accepting_orders", accepting).Error
}
