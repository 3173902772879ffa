package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/olegbarsky/tradeport-backend/internal/contacts"
	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
	"github.com/olegbarsky/tradeport-backend/pkg/enums"
	pkgerrors "github.com/olegbarsky/tradeport-backend/pkg/errors"
	"github.com/olegbarsky/tradeport-backend/pkg/logger"
	"github.com/olegbarsky/tradeport-backend/pkg/metrics"
	"github.com/olegbarsky/tradeport-backend/pkg/outbox"
	"github.com/olegbarsky/tradeport-backend/pkg/outbox/payloads"
)

// Service confirms baskets into orders and serves the order views.
type Service interface {
	Place(ctx context.Context, userID, contactID uint) (*OrderDTO, error)
	ListForBuyer(ctx context.Context, userID uint) ([]OrderDTO, error)
	GetOrder(ctx context.Context, userID, orderID uint) (*OrderDTO, error)
	ListForPartner(ctx context.Context, userID uint) ([]OrderDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userFinder interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

type shopFinder interface {
	FindShopByUserID(ctx context.Context, userID uint) (*models.Shop, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	tx      txRunner
	repo    *Repository
	users   userFinder
	shops   shopFinder
	events  eventEmitter
	metrics *metrics.PlatformMetrics
	logg    *logger.Logger
}

// NewService constructs the order service. The metrics handle may be nil.
func NewService(tx txRunner, repo *Repository, users userFinder, shops shopFinder, events eventEmitter, m *metrics.PlatformMetrics, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user finder required")
	}
	if shops == nil {
		return nil, fmt.Errorf("shop finder required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, repo: repo, users: users, shops: shops, events: events, metrics: m, logg: logg}, nil
}

// Place confirms the user's basket with a delivery contact. The state
// flip and the OrderPlaced outbox row commit in one transaction; the
// email itself is sent asynchronously by the notification worker.
func (s *service) Place(ctx context.Context, userID, contactID uint) (*OrderDTO, error) {
	contact, err := s.repo.FindContactOwned(ctx, contactID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load contact")
	}

	order, err := s.repo.FindBasketWithItems(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeEmptyBasket, "basket is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load basket")
	}
	if len(order.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyBasket, "basket is empty")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	placedAt := time.Now()
	dto := orderFromModel(order)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		changed, err := repo.Place(ctx, order.ID, contact.ID)
		if err != nil {
			return err
		}
		if changed == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "basket was already placed")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: user.ID, Email: user.Email},
			Data: payloads.OrderPlacedEvent{
				OrderID:   order.ID,
				UserID:    user.ID,
				Email:     user.Email,
				ContactID: contact.ID,
				ItemCount: len(order.Items),
				TotalSum:  dto.TotalSum.StringFixed(2),
				PlacedAt:  placedAt,
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "place order")
	}

	s.metrics.IncOrdersPlaced()
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID,
		"items":    len(order.Items),
		"total":    dto.TotalSum.StringFixed(2),
	}), "order placed")

	dto.State = enums.OrderStateNew.String()
	contactDTO := contacts.FromModel(*contact)
	dto.Contact = &contactDTO
	return dto, nil
}

// ListForBuyer returns the user's placed orders with totals.
func (s *service) ListForBuyer(ctx context.Context, userID uint) ([]OrderDTO, error) {
	rows, err := s.repo.ListForBuyer(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return ordersFromModels(rows), nil
}

// GetOrder loads one of the user's placed orders.
func (s *service) GetOrder(ctx context.Context, userID, orderID uint) (*OrderDTO, error) {
	order, err := s.repo.FindPlacedForBuyer(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return orderFromModel(order), nil
}

// ListForPartner returns placed orders containing the partner shop's offers.
func (s *service) ListForPartner(ctx context.Context, userID uint) ([]OrderDTO, error) {
	shop, err := s.shops.FindShopByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found for user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shop")
	}

	rows, err := s.repo.ListForShop(ctx, shop.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shop orders")
	}
	return ordersFromModels(rows), nil
}

func ordersFromModels(rows []models.Order) []OrderDTO {
	result := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		result = append(result, *orderFromModel(&rows[i]))
	}
	return result
}
