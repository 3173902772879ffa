package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/olegbarsky/tradeport-backend/internal/catalog"
	"github.com/olegbarsky/tradeport-backend/pkg/config"
	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
	pkgerrors "github.com/olegbarsky/tradeport-backend/pkg/errors"
	"github.com/olegbarsky/tradeport-backend/pkg/logger"
)

const sampleFeed = `
shop:
  name: Svyaznoy
  url: https://svyaznoy.ru/feed.yaml
categories:
  - id: 224
    name: Smartphones
  - id: 15
    name: Accessories
goods:
  - id: 4216292
    category: 224
    model: apple/iphone/xs-max
    name: Smartphone Apple iPhone XS Max 512GB (gold)
    price: 110000
    price_rrc: 116990
    quantity: 14
    parameters:
      "Screen Size (in)": 6.5
      "Color": gold
  - id: 4216313
    category: 15
    model: "charger/typec"
    name: USB-C Wall Charger
    price: 1500
    price_rrc: 1990
    quantity: 80
`

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupImporterDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
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
		`CREATE TABLE IF NOT EXISTS shop_categories (
  shop_id INTEGER NOT NULL,
  category_id INTEGER NOT NULL,
  PRIMARY KEY (shop_id, category_id)
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
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}

	return db
}

func newTestImporter(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "importer-test", Output: io.Discard})
	svc, err := NewService(gormTxRunner{db: db}, catalog.NewRepository(db), config.ImporterConfig{
		FetchTimeout:  5 * time.Second,
		FetchAttempts: 1,
		MaxFeedBytes:  1 << 20,
	}, nil, logg)
	require.NoError(t, err)
	return svc
}

func TestImportCreatesCatalogAndIsIdempotent(t *testing.T) {
	db := setupImporterDB(t)
	svc := newTestImporter(t, db)
	ctx := context.Background()

	first, err := svc.Import(ctx, 7, []byte(sampleFeed))
	require.NoError(t, err)
	assert.Equal(t, 1, first.ShopsCreated)
	assert.Equal(t, 2, first.CategoriesCreated)
	assert.Equal(t, 2, first.ProductsCreated)
	assert.Equal(t, 2, first.ProductInfosCreated)
	assert.Equal(t, 2, first.ParametersCreated)
	assert.Equal(t, 2, first.ProductParametersCreated)

	second, err := svc.Import(ctx, 7, []byte(sampleFeed))
	require.NoError(t, err)
	assert.Equal(t, &Summary{}, second)
}

func TestImportRejectsMalformedFeed(t *testing.T) {
	db := setupImporterDB(t)
	svc := newTestImporter(t, db)

	_, err := svc.Import(context.Background(), 7, []byte("categories:\n  - name: Orphans\n"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestImportUnknownCategoryReference(t *testing.T) {
	db := setupImporterDB(t)
	svc := newTestImporter(t, db)

	feed := `
shop: Svyaznoy
categories:
  - id: 224
    name: Smartphones
goods:
  - id: 1
    category: 999
    name: Mystery Device
    price: 10
    price_rrc: 12
    quantity: 1
`
	_, err := svc.Import(context.Background(), 7, []byte(feed))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	// The transaction must roll back the shop and categories too.
	var shops int64
	require.NoError(t, db.Model(&models.Shop{}).Count(&shops).Error)
	assert.Zero(t, shops)
}

func TestImportShopOwnedByAnotherPartner(t *testing.T) {
	db := setupImporterDB(t)
	svc := newTestImporter(t, db)
	ctx := context.Background()

	_, err := svc.Import(ctx, 7, []byte(sampleFeed))
	require.NoError(t, err)

	_, err = svc.Import(ctx, 8, []byte(sampleFeed))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSyncPartnerFeedReplacesStaleOffers(t *testing.T) {
	db := setupImporterDB(t)
	svc := newTestImporter(t, db)
	ctx := context.Background()

	// An unrelated shop that must survive the sync untouched.
	otherFeed := `
shop: Evrosetka
categories:
  - id: 1
    name: Smartphones
goods:
  - id: 100
    category: 1
    name: Smartphone Generic
    price: 5000
    price_rrc: 5500
    quantity: 3
`
	_, err := svc.Import(ctx, 2, []byte(otherFeed))
	require.NoError(t, err)

	feeds := map[string]string{"full": sampleFeed, "trimmed": `
shop: Svyaznoy
categories:
  - id: 224
    name: Smartphones
goods:
  - id: 4216292
    category: 224
    model: apple/iphone/xs-max
    name: Smartphone Apple iPhone XS Max 512GB (gold)
    price: 105000
    price_rrc: 112000
    quantity: 9
`}
	current := "full"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, feeds[current])
	}))
	defer server.Close()

	summary, err := svc.SyncPartnerFeed(ctx, 7, server.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ProductInfosCreated)
	assert.Zero(t, summary.ProductInfosRemoved)

	current = "trimmed"
	summary, err = svc.SyncPartnerFeed(ctx, 7, server.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProductInfosRemoved)

	var mine []models.ProductInfo
	require.NoError(t, db.
		Joins("JOIN shops ON shops.id = product_infos.shop_id").
		Where("shops.name = ?", "Svyaznoy").
		Find(&mine).Error)
	require.Len(t, mine, 1)
	assert.Equal(t, uint(4216292), mine[0].ExternalID)
	assert.Equal(t, 9, mine[0].Quantity)

	var others int64
	require.NoError(t, db.Model(&models.ProductInfo{}).
		Joins("JOIN shops ON shops.id = product_infos.shop_id").
		Where("shops.name = ?", "Evrosetka").
		Count(&others).Error)
	assert.Equal(t, int64(1), others)
}

func TestSyncPartnerFeedUpstreamError(t *testing.T) {
	db := setupImporterDB(t)
	svc := newTestImporter(t, db)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := svc.SyncPartnerFeed(context.Background(), 7, server.URL)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUpstreamFetch {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseFeedScalarShop(t *testing.T) {
	t.Parallel()

	doc, err := ParseFeed([]byte("shop: Svyaznoy\n"))
	require.NoError(t, err)
	assert.Equal(t, "Svyaznoy", doc.Shop.Name)
	assert.Nil(t, doc.Shop.URL)
}
