package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
	pkgerrors "github.com/olegbarsky/tradeport-backend/pkg/errors"
)

// Service exposes catalog read paths and the partner state toggle.
type Service interface {
	ListProducts(ctx context.Context, filter ListFilter) ([]ProductInfoDTO, error)
	GetProduct(ctx context.Context, id uint) (*ProductInfoDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	ListShops(ctx context.Context) ([]ShopDTO, error)
	PartnerState(ctx context.Context, userID uint) (*ShopStateDTO, error)
	SetPartnerState(ctx context.Context, userID uint, raw string) (*ShopStateDTO, error)
}

type catalogRepo interface {
	ListProductInfos(ctx context.Context, filter ListFilter) ([]models.ProductInfo, error)
	FindProductInfoByID(ctx context.Context, id uint) (*models.ProductInfo, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListShops(ctx context.Context) ([]models.Shop, error)
	FindShopByUserID(ctx context.Context, userID uint) (*models.Shop, error)
	SetShopAcceptingOrders(ctx context.Context, shopID uint, accepting bool) error
}

type service struct {
	repo catalogRepo
}

// NewService constructs a catalog service instance.
func NewService(repo catalogRepo) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) ([]ProductInfoDTO, error) {
	rows, err := s.repo.ListProductInfos(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	result := make([]ProductInfoDTO, 0, len(rows))
	for _, row := range rows {
		result = append(result, productInfoFromModel(row))
	}
	return result, nil
}

func (s *service) GetProduct(ctx context.Context, id uint) (*ProductInfoDTO, error) {
	info, err := s.repo.FindProductInfoByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	dto := productInfoFromModel(*info)
	return &dto, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	result := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		result = append(result, categoryFromModel(row))
	}
	return result, nil
}

func (s *service) ListShops(ctx context.Context) ([]ShopDTO, error) {
	rows, err := s.repo.ListShops(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shops")
	}
	result := make([]ShopDTO, 0, len(rows))
	for _, row := range rows {
		result = append(result, shopFromModel(row))
	}
	return result, nil
}

func (s *service) PartnerState(ctx context.Context, userID uint) (*ShopStateDTO, error) {
	shop, err := s.loadPartnerShop(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ShopStateDTO{ID: shop.ID, Name: shop.Name, State: shop.AcceptingOrders}, nil
}

func (s *service) SetPartnerState(ctx context.Context, userID uint, raw string) (*ShopStateDTO, error) {
	state, err := ParseAcceptingFlag(raw)
	if err != nil {
		return nil, err
	}
	shop, err := s.loadPartnerShop(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetShopAcceptingOrders(ctx, shop.ID, state); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update shop state")
	}
	return &ShopStateDTO{ID: shop.ID, Name: shop.Name, State: state}, nil
}

func (s *service) loadPartnerShop(ctx context.Context, userID uint) (*models.Shop, error) {
	shop, err := s.repo.FindShopByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found for user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shop")
	}
	return shop, nil
}

// ParseAcceptingFlag interprets the tolerant boolean forms accepted by
// the partner state endpoint.
func ParseAcceptingFlag(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y", "on":
		return true, nil
	case "false", "0", "no", "n", "off":
		return false, nil
	default:
		return false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cannot interpret %q as a boolean", raw))
	}
}
