package basket

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/olegbarsky/tradeport-backend/pkg/db"
	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
	pkgerrors "github.com/olegbarsky/tradeport-backend/pkg/errors"
)

// Service is the basket engine: one open basket per user, line-level
// add/update/remove and the priced view.
type Service interface {
	GetOrCreate(ctx context.Context, userID uint) (*models.Order, error)
	AddItems(ctx context.Context, userID uint, items []AddItemInput) (int, error)
	UpdateItems(ctx context.Context, userID uint, updates []UpdateItemInput) (int64, error)
	RemoveItems(ctx context.Context, userID uint, rawIDs string) (int64, error)
	View(ctx context.Context, userID uint) (*BasketDTO, error)
}

type basketRepo interface {
	FindBasket(ctx context.Context, userID uint) (*models.Order, error)
	FindBasketWithItems(ctx context.Context, userID uint) (*models.Order, error)
	CreateBasket(ctx context.Context, userID uint) (*models.Order, error)
	ProductInfoExists(ctx context.Context, id uint) (bool, error)
	CreateItem(ctx context.Context, item *models.OrderItem) error
	UpdateItemQuantity(ctx context.Context, orderID, itemID uint, quantity int) (int64, error)
	DeleteItems(ctx context.Context, orderID uint, itemIDs []uint) (int64, error)
}

type service struct {
	repo basketRepo
}

// NewService constructs the basket engine.
func NewService(repo basketRepo) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("basket repository required")
	}
	return &service{repo: repo}, nil
}

// GetOrCreate returns the user's open basket, creating it when absent.
// Two concurrent creates race on the partial unique index; the loser
// refetches the winner's row.
func (s *service) GetOrCreate(ctx context.Context, userID uint) (*models.Order, error) {
	order, err := s.repo.FindBasket(ctx, userID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load basket")
	}

	order, err = s.repo.CreateBasket(ctx, userID)
	if err == nil {
		return order, nil
	}
	if db.IsUniqueViolation(err, "ux_orders_active_basket") {
		order, err = s.repo.FindBasket(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load basket after race")
		}
		return order, nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create basket")
}

// AddItems applies lines one at a time. The first failing line
// short-circuits; lines already applied stand and the count returned
// reflects them.
func (s *service) AddItems(ctx context.Context, userID uint, items []AddItemInput) (int, error) {
	if len(items) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "no items to add")
	}

	order, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, line := range items {
		if line.Quantity < 1 {
			return added, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be at least 1 for product_info %d", line.ProductInfoID))
		}
		exists, err := s.repo.ProductInfoExists(ctx, line.ProductInfoID)
		if err != nil {
			return added, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check product info")
		}
		if !exists {
			return added, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product_info %d not found", line.ProductInfoID))
		}

		err = s.repo.CreateItem(ctx, &models.OrderItem{
			OrderID:       order.ID,
			ProductInfoID: line.ProductInfoID,
			Quantity:      line.Quantity,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "ux_order_items_order_product") {
				return added, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("product_info %d is already in the basket", line.ProductInfoID))
			}
			return added, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add basket item")
		}
		added++
	}
	return added, nil
}

// UpdateItems changes quantities on existing lines. Entries that do not
// belong to the caller's basket, or are malformed, are silently skipped.
func (s *service) UpdateItems(ctx context.Context, userID uint, updates []UpdateItemInput) (int64, error) {
	order, err := s.repo.FindBasket(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load basket")
	}

	var changed int64
	for _, entry := range updates {
		if entry.ID == 0 || entry.Quantity < 1 {
			continue
		}
		n, err := s.repo.UpdateItemQuantity(ctx, order.ID, entry.ID, entry.Quantity)
		if err != nil {
			return changed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update basket item")
		}
		changed += n
	}
	return changed, nil
}

// RemoveItems deletes lines named by a comma-joined id list. Tokens
// that are not positive integers are ignored.
func (s *service) RemoveItems(ctx context.Context, userID uint, rawIDs string) (int64, error) {
	ids := parseIDList(rawIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	order, err := s.repo.FindBasket(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load basket")
	}

	deleted, err := s.repo.DeleteItems(ctx, order.ID, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove basket items")
	}
	return deleted, nil
}

// View renders the basket with denormalized offers and the decimal total.
func (s *service) View(ctx context.Context, userID uint) (*BasketDTO, error) {
	order, err := s.repo.FindBasketWithItems(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created, err := s.GetOrCreate(ctx, userID)
			if err != nil {
				return nil, err
			}
			return basketFromModel(created), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load basket")
	}
	return basketFromModel(order), nil
}

func parseIDList(raw string) []uint {
	parts := strings.Split(raw, ",")
	ids := make([]uint, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil || value == 0 {
			continue
		}
		ids = append(ids, uint(value))
	}
	return ids
}
