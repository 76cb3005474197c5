// Package bootstrap opens the row store stack the binaries share.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/imiq/imiq-backend/pkg/config"
	"github.com/imiq/imiq-backend/pkg/db"
	"github.com/imiq/imiq-backend/pkg/logger"
	"github.com/imiq/imiq-backend/pkg/metrics"
	"github.com/imiq/imiq-backend/pkg/migrate"
	"github.com/imiq/imiq-backend/pkg/redis"
	"github.com/imiq/imiq-backend/pkg/sheet"
)

// Store is an opened row store plus the connections behind it.
type Store struct {
	sheet.Store

	DB    *db.Client
	Redis *redis.Client

	closers []func() error
}

// Close releases every connection opened for the store.
func (s *Store) Close() error {
	var errs error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, s.closers[i]())
	}
	return errs
}

// Ping checks the backing store.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.Store.(sheet.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// OpenStore selects the configured backend, wraps it with metrics when reg
// is set and with the redis snapshot cache when redis is configured with a
// positive cache TTL.
func OpenStore(ctx context.Context, cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer) (*Store, error) {
	out := &Store{}
	schemas := sheet.DefaultSchemas()

	var base sheet.Store
	switch cfg.Store.Driver {
	case config.StoreDriverExcel:
		excel, err := sheet.NewExcel(cfg.Store.ExcelPath, schemas)
		if err != nil {
			return nil, err
		}
		if err := excel.EnsureTables(ctx); err != nil {
			return nil, fmt.Errorf("preparing workbook: %w", err)
		}
		base = excel
	case config.StoreDriverSQL:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrapping database: %w", err)
		}
		out.DB = client
		out.closers = append(out.closers, client.Close)
		if err := migrate.MaybeRun(ctx, cfg, logg, client); err != nil {
			return nil, multierr.Append(fmt.Errorf("running migrations: %w", err), out.Close())
		}
		sqlStore, err := sheet.NewSQL(client, schemas)
		if err != nil {
			return nil, multierr.Append(err, out.Close())
		}
		base = sqlStore
	default:
		base = sheet.NewMemory(schemas)
	}

	storeMetrics := metrics.NewStoreMetrics(reg)
	var store sheet.Store = sheet.NewInstrumented(base, storeMetrics)

	switch {
	case cfg.CacheEnabled():
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("bootstrapping redis: %w", err), out.Close())
		}
		out.Redis = client
		out.closers = append(out.closers, client.Close)
		cached, err := sheet.NewCached(store, client, cfg.Store.CacheTTL, logg, sheet.WithCacheRecorder(storeMetrics))
		if err != nil {
			return nil, multierr.Append(err, out.Close())
		}
		store = cached
	case cfg.Redis.Enabled():
		logg.Warn(ctx, "redis configured but cache ttl is not positive; table cache disabled")
	}

	out.Store = store
	logg.Info(logg.WithFields(ctx, map[string]any{
		"store_driver": cfg.Store.Driver,
		"cache":        out.Redis != nil,
	}), "row store ready")
	return out, nil
}
