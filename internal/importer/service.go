package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/olegbarsky/tradeport-backend/internal/catalog"
	"github.com/olegbarsky/tradeport-backend/pkg/config"
	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
	pkgerrors "github.com/olegbarsky/tradeport-backend/pkg/errors"
	"github.com/olegbarsky/tradeport-backend/pkg/logger"
	"github.com/olegbarsky/tradeport-backend/pkg/metrics"
)

const (
	triggerUpload = "upload"
	triggerSync   = "sync"
)

// Service reconciles partner price-list feeds into the catalog.
type Service interface {
	Import(ctx context.Context, userID uint, raw []byte) (*Summary, error)
	SyncPartnerFeed(ctx context.Context, userID uint, feedURL string) (*Summary, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	tx      txRunner
	repo    *catalog.Repository
	client  *http.Client
	cfg     config.ImporterConfig
	metrics *metrics.PlatformMetrics
	logg    *logger.Logger
}

// NewService constructs the importer. The metrics handle may be nil.
func NewService(tx txRunner, repo *catalog.Repository, cfg config.ImporterConfig, m *metrics.PlatformMetrics, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:      tx,
		repo:    repo,
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		cfg:     cfg,
		metrics: m,
		logg:    logg,
	}, nil
}

// Import applies an uploaded feed document for the partner in one
// transaction. A half-applied feed never becomes visible.
func (s *service) Import(ctx context.Context, userID uint, raw []byte) (*Summary, error) {
	doc, err := ParseFeed(raw)
	if err != nil {
		s.metrics.IncImportFailure(triggerUpload)
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid feed")
	}
	return s.run(ctx, triggerUpload, userID, doc, false)
}

// SyncPartnerFeed fetches the partner's feed by url and reconciles the
// shop to it, removing offers the new feed no longer carries.
func (s *service) SyncPartnerFeed(ctx context.Context, userID uint, feedURL string) (*Summary, error) {
	raw, err := s.fetchFeed(ctx, feedURL)
	if err != nil {
		s.metrics.IncImportFailure(triggerSync)
		return nil, err
	}
	doc, err := ParseFeed(raw)
	if err != nil {
		s.metrics.IncImportFailure(triggerSync)
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid feed")
	}
	if doc.Shop.URL == nil {
		doc.Shop.URL = &feedURL
	}
	return s.run(ctx, triggerSync, userID, doc, true)
}

func (s *service) run(ctx context.Context, trigger string, userID uint, doc *FeedDocument, replace bool) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.applyFeed(ctx, tx, userID, doc, summary, replace)
	})
	s.metrics.ObserveImportDuration(trigger, time.Since(start))
	if err != nil {
		s.metrics.IncImportFailure(trigger)
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "import feed")
	}

	s.metrics.IncImportSuccess(trigger)
	s.metrics.AddImportedRows("shops", summary.ShopsCreated)
	s.metrics.AddImportedRows("categories", summary.CategoriesCreated)
	s.metrics.AddImportedRows("products", summary.ProductsCreated)
	s.metrics.AddImportedRows("product_infos", summary.ProductInfosCreated)
	s.metrics.AddImportedRows("parameters", summary.ParametersCreated)
	s.metrics.AddImportedRows("product_parameters", summary.ProductParametersCreated)

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"trigger":       trigger,
		"shop":          doc.Shop.Name,
		"goods":         len(doc.Goods),
		"infos_created": summary.ProductInfosCreated,
		"infos_removed": summary.ProductInfosRemoved,
	}), "feed imported")
	return summary, nil
}

func (s *service) applyFeed(ctx context.Context, tx *gorm.DB, userID uint, doc *FeedDocument, summary *Summary, replace bool) error {
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindShopByName(ctx, doc.Shop.Name)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if existing != nil && (existing.UserID == nil || *existing.UserID != userID) {
		return pkgerrors.New(pkgerrors.CodeConflict, "shop name is registered to another partner")
	}

	shop, created, err := repo.UpsertShopForUser(ctx, userID, doc.Shop.Name, doc.Shop.URL)
	if err != nil {
		return err
	}
	if created {
		summary.ShopsCreated++
	}

	categories := make(map[uint]*models.Category, len(doc.Categories))
	for _, entry := range doc.Categories {
		cat, created, err := repo.UpsertCategory(ctx, entry.Name)
		if err != nil {
			return err
		}
		if created {
			summary.CategoriesCreated++
		}
		if err := repo.LinkShopCategory(ctx, shop.ID, cat.ID); err != nil {
			return err
		}
		categories[entry.ID] = cat
	}

	keepExternalIDs := make([]uint, 0, len(doc.Goods))
	for _, good := range doc.Goods {
		cat, ok := categories[good.Category]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("good %d references category %d which is not in the feed", good.ID, good.Category))
		}

		product, created, err := repo.UpsertProduct(ctx, good.Name, cat.ID)
		if err != nil {
			return err
		}
		if created {
			summary.ProductsCreated++
		}

		info, created, err := repo.UpsertProductInfo(ctx, &models.ProductInfo{
			ProductID:  product.ID,
			ShopID:     shop.ID,
			ExternalID: good.ID,
			Model:      good.Model,
			Quantity:   good.Quantity,
			Price:      good.Price.Decimal,
			PriceRRC:   good.PriceRRC.Decimal,
		})
		if err != nil {
			return err
		}
		if created {
			summary.ProductInfosCreated++
		}
		keepExternalIDs = append(keepExternalIDs, good.ID)

		keepParams := make([]uint, 0, len(good.Parameters))
		for name, value := range good.Parameters {
			param, created, err := repo.UpsertParameter(ctx, name)
			if err != nil {
				return err
			}
			if created {
				summary.ParametersCreated++
			}
			_, created, err = repo.UpsertProductParameter(ctx, info.ID, param.ID, value)
			if err != nil {
				return err
			}
			if created {
				summary.ProductParametersCreated++
			}
			keepParams = append(keepParams, param.ID)
		}
		if err := repo.DeleteStaleProductParameters(ctx, info.ID, keepParams); err != nil {
			return err
		}
	}

	if replace {
		removed, err := repo.DeleteStaleProductInfos(ctx, shop.ID, keepExternalIDs)
		if err != nil {
			return err
		}
		summary.ProductInfosRemoved = int(removed)
	}
	return nil
}

func (s *service) fetchFeed(ctx context.Context, feedURL string) ([]byte, error) {
	attempts := s.cfg.FetchAttempts
	if attempts == 0 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewFibonacci(500*time.Millisecond))

	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		reqCtx := ctx
		if s.cfg.FetchTimeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()
		}

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, feedURL, nil)
		if err != nil {
			return err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("upstream returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("upstream returned %d", resp.StatusCode)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxFeedBytes+1))
		if err != nil {
			return retry.RetryableError(err)
		}
		if int64(len(data)) > s.cfg.MaxFeedBytes {
			return fmt.Errorf("feed exceeds %d bytes", s.cfg.MaxFeedBytes)
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamFetch, err, "fetch partner feed")
	}
	return body, nil
}
