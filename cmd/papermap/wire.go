package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/onnwee/citation-map/internal/cache"
	"github.com/onnwee/citation-map/internal/circuitbreaker"
	"github.com/onnwee/citation-map/internal/config"
	"github.com/onnwee/citation-map/internal/logger"
	"github.com/onnwee/citation-map/internal/metrics"
	"github.com/onnwee/citation-map/internal/papers"
	"github.com/onnwee/citation-map/internal/secrets"
	"github.com/onnwee/citation-map/internal/server"
	"github.com/onnwee/citation-map/internal/store"
)

// snapshotEntries bounds the number of cached snapshots; there is one per
// positions table and dimension.
const snapshotEntries = 16

type deps struct {
	source    papers.Source
	positions store.Backend
	runs      store.RunRecorder
	history   server.History

	closers []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// wire builds the paper source and position store selected by cfg. Without
// DATABASE_URL positions live in memory and are lost on exit.
func wire(ctx context.Context, cfg *config.Config) (*deps, error) {
	d := &deps{}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(cfg.DatabaseURL, cfg.Sources.PositionsTable, cfg.Sources.RunsTable)
		if err != nil {
			return nil, fmt.Errorf("connect database %s: %w", secrets.MaskDSN(cfg.DatabaseURL), err)
		}
		logger.Info("connected to database", "dsn", secrets.MaskDSN(cfg.DatabaseURL))
		d.closers = append(d.closers, func() { pg.Close() })
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		db = pg.DB
		d.runs = pg
		d.history = pg
		d.positions = &store.Guarded{
			Backend: pg,
			Breaker: circuitbreaker.New(circuitbreaker.Config{
				Name:             "position_store",
				FailureThreshold: 3,
				Timeout:          5 * time.Minute,
			}),
		}

		if cfg.CacheMaxMB > 0 {
			rc, err := cache.NewRistretto(int64(cfg.CacheMaxMB), snapshotEntries, cfg.CacheTTL)
			if err != nil {
				return nil, fmt.Errorf("create snapshot cache: %w", err)
			}
			d.closers = append(d.closers, rc.Close)
			d.positions = &store.Cached{
				Backend: d.positions,
				Cache:   rc,
				Key:     cache.SnapshotKey(cfg.Sources.PositionsTable, cfg.Layout.Dim),
			}
			collector := metrics.NewCollector(rc, 30*time.Second)
			go collector.Start(ctx)
			d.closers = append(d.closers, collector.Stop)
		}
	} else {
		logger.Warn("DATABASE_URL not set, positions will not be persisted")
		d.positions = store.NewMemory()
		d.runs = &store.MemoryRuns{}
	}

	switch {
	case cfg.Sources.PapersFile != "":
		d.source = &papers.FileSource{
			Path:           cfg.Sources.PapersFile,
			ExtraLinksPath: cfg.Sources.ExtraLinksFile,
			ReductionDepth: cfg.Layout.ReductionDepth,
		}
	case db != nil:
		d.source = &papers.PostgresSource{
			DB:             db,
			MetaTable:      cfg.Sources.MetaTable,
			CiteTable:      cfg.Sources.CiteTable,
			ReductionDepth: cfg.Layout.ReductionDepth,
		}
	default:
		return nil, errors.New("no paper source: set PAPERS_FILE or DATABASE_URL")
	}

	ok = true
	return d, nil
}
