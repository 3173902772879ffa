package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/olegbarsky/tradeport-backend/internal/catalog"
	"github.com/olegbarsky/tradeport-backend/internal/users"
	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
	"github.com/olegbarsky/tradeport-backend/pkg/enums"
	pkgerrors "github.com/olegbarsky/tradeport-backend/pkg/errors"
	"github.com/olegbarsky/tradeport-backend/pkg/logger"
	"github.com/olegbarsky/tradeport-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT,
  last_name TEXT,
  company TEXT,
  position TEXT,
  type TEXT NOT NULL DEFAULT 'buyer',
  is_active INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS shops (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER UNIQUE,
  name TEXT NOT NULL,
  url TEXT,
  accepting_orders INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS categories (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  category_id INTEGER NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS product_infos (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  product_id INTEGER NOT NULL,
  shop_id INTEGER NOT NULL,
  external_id INTEGER NOT NULL,
  model TEXT,
  quantity INTEGER NOT NULL DEFAULT 0,
  price NUMERIC NOT NULL DEFAULT 0,
  price_rrc NUMERIC NOT NULL DEFAULT 0,
  UNIQUE (product_id, shop_id, external_id)
);`,
		`CREATE TABLE IF NOT EXISTS parameters (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE
);`,
		`CREATE TABLE IF NOT EXISTS product_parameters (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  product_info_id INTEGER NOT NULL,
  parameter_id INTEGER NOT NULL,
  value TEXT NOT NULL,
  UNIQUE (product_info_id, parameter_id)
);`,
		`CREATE TABLE IF NOT EXISTS contacts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  city TEXT NOT NULL,
  street TEXT NOT NULL,
  house TEXT,
  structure TEXT,
  building TEXT,
  apartment TEXT,
  phone TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  state TEXT NOT NULL DEFAULT 'basket',
  contact_id INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_active_basket ON orders (user_id) WHERE state = 'basket';`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id INTEGER NOT NULL,
  product_info_id INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  UNIQUE (order_id, product_info_id)
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id INTEGER NOT NULL,
  payload TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  published_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}

	return db
}

type ordersFixture struct {
	db  *gorm.DB
	svc Service
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()

	db := setupOrdersTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	events := outbox.NewService(outbox.NewRepository(db), logg)
	svc, err := NewService(gormTxRunner{db: db}, NewRepository(db), users.NewRepository(db), catalog.NewRepository(db), events, nil, logg)
	require.NoError(t, err)
	return &ordersFixture{db: db, svc: svc}
}

func (f *ordersFixture) seedUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := models.User{Email: email, PasswordHash: "x", Type: enums.UserTypeBuyer, IsActive: true}
	require.NoError(t, f.db.Create(&user).Error)
	return &user
}

func (f *ordersFixture) seedContact(t *testing.T, userID uint) *models.Contact {
	t.Helper()
	contact := models.Contact{UserID: userID, City: "Moscow", Street: "Lenina", House: "5", Phone: "+7 900 000 00 00"}
	require.NoError(t, f.db.Create(&contact).Error)
	return &contact
}

func (f *ordersFixture) seedOffer(t *testing.T, shopUserID *uint, externalID uint, price string) *models.ProductInfo {
	t.Helper()

	category := models.Category{Name: fmt.Sprintf("Category %d", externalID)}
	require.NoError(t, f.db.Create(&category).Error)
	shop := models.Shop{Name: fmt.Sprintf("Shop %d", externalID), UserID: shopUserID, AcceptingOrders: true}
	require.NoError(t, f.db.Create(&shop).Error)
	product := models.Product{Name: fmt.Sprintf("Product %d", externalID), CategoryID: category.ID}
	require.NoError(t, f.db.Create(&product).Error)

	info := models.ProductInfo{
		ProductID:  product.ID,
		ShopID:     shop.ID,
		ExternalID: externalID,
		Quantity:   100,
		Price:      decimal.RequireFromString(price),
		PriceRRC:   decimal.RequireFromString(price),
	}
	require.NoError(t, f.db.Create(&info).Error)
	return &info
}

func (f *ordersFixture) seedBasket(t *testing.T, userID uint, lines map[uint]int) *models.Order {
	t.Helper()
	order := models.Order{UserID: userID, State: enums.OrderStateBasket}
	require.NoError(t, f.db.Create(&order).Error)
	for infoID, qty := range lines {
		require.NoError(t, f.db.Create(&models.OrderItem{OrderID: order.ID, ProductInfoID: infoID, Quantity: qty}).Error)
	}
	return &order
}

func TestPlaceFlipsBasketAndEmitsEvent(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	user := f.seedUser(t, "buyer@example.ru")
	contact := f.seedContact(t, user.ID)
	offerA := f.seedOffer(t, nil, 1, "10.00")
	offerB := f.seedOffer(t, nil, 2, "7.50")
	basket := f.seedBasket(t, user.ID, map[uint]int{offerA.ID: 2, offerB.ID: 3})

	placed, err := f.svc.Place(ctx, user.ID, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, basket.ID, placed.ID)
	assert.Equal(t, "new", placed.State)
	require.NotNil(t, placed.Contact)
	assert.True(t, placed.TotalSum.Equal(decimal.RequireFromString("42.50")))

	var row models.Order
	require.NoError(t, f.db.First(&row, basket.ID).Error)
	assert.Equal(t, enums.OrderStateNew, row.State)
	require.NotNil(t, row.ContactID)
	assert.Equal(t, contact.ID, *row.ContactID)

	var events []models.OutboxEvent
	require.NoError(t, f.db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderPlaced, events[0].EventType)
	assert.Equal(t, basket.ID, events[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, "buyer@example.ru", envelope.Actor.Email)
}

func TestPlaceEmptyBasketLeavesEverythingUntouched(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	user := f.seedUser(t, "buyer@example.ru")
	contact := f.seedContact(t, user.ID)
	f.seedBasket(t, user.ID, nil)

	_, err := f.svc.Place(ctx, user.ID, contact.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeEmptyBasket {
		t.Fatalf("unexpected error: %v", err)
	}

	var row models.Order
	require.NoError(t, f.db.Where("user_id = ?", user.ID).First(&row).Error)
	assert.Equal(t, enums.OrderStateBasket, row.State)
	assert.Nil(t, row.ContactID)

	var events int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).Count(&events).Error)
	assert.Zero(t, events)
}

func TestPlaceForeignContact(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	buyer := f.seedUser(t, "buyer@example.ru")
	other := f.seedUser(t, "other@example.ru")
	foreign := f.seedContact(t, other.ID)
	offer := f.seedOffer(t, nil, 1, "10.00")
	f.seedBasket(t, buyer.ID, map[uint]int{offer.ID: 1})

	_, err := f.svc.Place(ctx, buyer.ID, foreign.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListForBuyerExcludesBasket(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	user := f.seedUser(t, "buyer@example.ru")
	contact := f.seedContact(t, user.ID)
	offer := f.seedOffer(t, nil, 1, "10.00")
	f.seedBasket(t, user.ID, map[uint]int{offer.ID: 2})

	placed, err := f.svc.Place(ctx, user.ID, contact.ID)
	require.NoError(t, err)

	// A fresh basket opens after placement and must not appear in the list.
	f.seedBasket(t, user.ID, nil)

	list, err := f.svc.ListForBuyer(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, placed.ID, list[0].ID)
	assert.True(t, list[0].TotalSum.Equal(decimal.RequireFromString("20.00")))

	got, err := f.svc.GetOrder(ctx, user.ID, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.State)

	// Another user cannot read it.
	other := f.seedUser(t, "other@example.ru")
	_, err = f.svc.GetOrder(ctx, other.ID, placed.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListForPartnerFiltersByShop(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	partner := f.seedUser(t, "partner@shop.ru")
	buyer := f.seedUser(t, "buyer@example.ru")
	contact := f.seedContact(t, buyer.ID)

	mine := f.seedOffer(t, &partner.ID, 1, "10.00")
	foreign := f.seedOffer(t, nil, 2, "99.00")

	f.seedBasket(t, buyer.ID, map[uint]int{mine.ID: 1})
	placed, err := f.svc.Place(ctx, buyer.ID, contact.ID)
	require.NoError(t, err)

	f.seedBasket(t, buyer.ID, map[uint]int{foreign.ID: 1})
	_, err = f.svc.Place(ctx, buyer.ID, contact.ID)
	require.NoError(t, err)

	list, err := f.svc.ListForPartner(ctx, partner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, placed.ID, list[0].ID)

	// A partner without a shop gets NOT_FOUND.
	_, err = f.svc.ListForPartner(ctx, buyer.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}
