package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/olegbarsky/tradeport-backend/pkg/logger"
)

const defaultBasketRetentionDays = 90

type staleBasketRepo interface {
	DeleteStaleBaskets(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type BasketCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository staleBasketRepo
	Retention  int
}

// NewBasketCleanupJob drops open baskets that have been idle past the
// retention window. Placed orders are never affected.
func NewBasketCleanupJob(params BasketCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("basket repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultBasketRetentionDays
	}
	return &basketCleanupJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type basketCleanupJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      staleBasketRepo
	retention int
	now       func() time.Time
}

func (j *basketCleanupJob) Name() string { return "basket-cleanup" }

func (j *basketCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeleteStaleBaskets(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("basket cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":          cutoff,
		"retention_days":  j.retention,
		"baskets_deleted": deleted,
	})
	j.logg.Info(logCtx, "stale basket cleanup complete")
	return nil
}
