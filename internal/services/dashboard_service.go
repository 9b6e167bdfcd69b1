package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"vendas/internal/amqp"
	"vendas/internal/cache"
	"vendas/internal/core"
	applog "vendas/internal/log"
	ports "vendas/internal/sheets"
)

// datasetKey is the single process-wide cache entry.
const datasetKey = "dataset"

// DashboardConfig tunes the dataset cache and loads.
type DashboardConfig struct {
	SourceName    string
	CacheTTL      time.Duration
	SourceTimeout time.Duration
	Columns       Columns
	Clock         func() time.Time
}

func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		SourceName:    "sheets",
		CacheTTL:      10 * time.Minute,
		SourceTimeout: 20 * time.Second,
		Columns:       DefaultColumns(),
		Clock:         time.Now,
	}
}

// DashboardView is everything one dashboard render needs.
type DashboardView struct {
	Selection core.Selection
	Years     []int
	Months    []int
	Snapshot  core.Snapshot
	LoadedAt  time.Time

	SalesRows  int
	TargetRows int
}

// DashboardService owns the cached dataset. Concurrent cache misses share
// one source read; the cached dataset is read-only.
type DashboardService struct {
	source     ports.RawDataSource
	normalizer *Normalizer
	cache      *cache.LRUCache[core.Dataset]
	group      singleflight.Group
	cfg        DashboardConfig
	ready      atomic.Bool
	loads      atomic.Int64
	// generation is bumped by Invalidate; a load started under an older
	// generation must not repopulate the cache.
	genMu      sync.Mutex
	generation uint64
}

func NewDashboardService(source ports.RawDataSource, cfg DashboardConfig) *DashboardService {
	def := DefaultDashboardConfig()
	if cfg.SourceName == "" {
		cfg.SourceName = def.SourceName
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = def.SourceTimeout
	}
	if cfg.Columns == (Columns{}) {
		cfg.Columns = def.Columns
	}
	if cfg.Clock == nil {
		cfg.Clock = def.Clock
	}
	return &DashboardService{
		source:     source,
		normalizer: NewNormalizer(cfg.Columns),
		cache:      cache.NewLRUCache[core.Dataset](1, cfg.CacheTTL).WithClock(cfg.Clock),
		cfg:        cfg,
	}
}

// Dataset returns the cached dataset, loading it when the freshness window
// has elapsed. Errors are *core.LoadError.
func (s *DashboardService) Dataset(ctx context.Context) (core.Dataset, error) {
	if ds, ok := s.cache.Get(datasetKey); ok {
		return ds, nil
	}

	ch := s.group.DoChan(datasetKey, func() (interface{}, error) {
		// a shared load must outlive the request that started it
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SourceTimeout)
		defer cancel()
		return s.load(lctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return core.Dataset{}, res.Err
		}
		return res.Val.(core.Dataset), nil
	case <-ctx.Done():
		return core.Dataset{}, core.NewLoadError(s.cfg.SourceName, "", fmt.Errorf("%w: %v", core.ErrSourceUnavailable, ctx.Err()))
	}
}

func (s *DashboardService) load(ctx context.Context) (core.Dataset, error) {
	start := time.Now()
	s.genMu.Lock()
	gen := s.generation
	s.genMu.Unlock()
	s.loads.Add(1)

	raw, err := s.source.ReadTables(ctx)
	if err != nil {
		err = s.loadError(err)
		slog.ErrorContext(ctx, "Dataset load failed", applog.FieldSource, s.cfg.SourceName, applog.FieldError, err)
		return core.Dataset{}, err
	}

	ds, err := s.normalizer.Normalize(ctx, raw)
	if err != nil {
		err = s.loadError(err)
		slog.ErrorContext(ctx, "Dataset normalization failed", applog.FieldSource, s.cfg.SourceName, applog.FieldError, err)
		return core.Dataset{}, err
	}
	ds.LoadedAt = s.cfg.Clock()

	s.genMu.Lock()
	stale := s.generation != gen
	if !stale {
		s.cache.Set(datasetKey, ds)
		s.ready.Store(true)
	}
	s.genMu.Unlock()
	if stale {
		slog.InfoContext(ctx, "Dataset invalidated during load, not caching", applog.FieldSource, s.cfg.SourceName)
		return ds, nil
	}
	slog.InfoContext(ctx, "Dataset loaded",
		applog.FieldSource, s.cfg.SourceName,
		applog.FieldSalesRows, len(ds.Sales),
		applog.FieldTargetRows, len(ds.Targets),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return ds, nil
}

// loadError makes sure err is a LoadError naming the configured source.
func (s *DashboardService) loadError(err error) error {
	var le *core.LoadError
	if errors.As(err, &le) {
		if le.Source == "" {
			le.Source = s.cfg.SourceName
		}
		return err
	}
	return &core.LoadError{Source: s.cfg.SourceName, Err: fmt.Errorf("%w: %v", core.ErrSourceUnavailable, err)}
}

// Invalidate drops the cached dataset; the next request reloads it.
func (s *DashboardService) Invalidate() {
	s.genMu.Lock()
	s.generation++
	s.cache.Delete(datasetKey)
	s.genMu.Unlock()
	s.group.Forget(datasetKey)
}

// HandleDatasetRefreshed invalidates the cache when the mirror worker
// announces new data. It plugs into amqp.Client.ConsumeDatasetRefreshed.
func (s *DashboardService) HandleDatasetRefreshed(msg *amqp.DatasetRefreshedMessage) error {
	if msg == nil {
		return errors.New("nil refresh message")
	}
	s.Invalidate()
	slog.Info("Dataset invalidated by refresh event",
		applog.FieldMirrorRunID, msg.MirrorRunID,
		"run_id", msg.RunID,
		applog.FieldSalesRows, msg.LedgerRows)
	return nil
}

// Reload drops the cached dataset and loads it again.
func (s *DashboardService) Reload(ctx context.Context) (core.Dataset, error) {
	s.Invalidate()
	return s.Dataset(ctx)
}

// View resolves the requested selection against the dataset and computes
// its snapshot. An empty ledger is a load error.
func (s *DashboardService) View(ctx context.Context, requested core.Selection) (DashboardView, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return DashboardView{}, err
	}
	sel, err := ResolveSelection(ds, requested)
	if err != nil {
		return DashboardView{}, &core.LoadError{Source: s.cfg.SourceName, Err: err}
	}
	return DashboardView{
		Selection: sel,
		Years:     Years(ds),
		Months:    Months(ds, sel.Year),
		Snapshot:  ComputeSnapshot(ds, sel),
		LoadedAt:  ds.LoadedAt,

		SalesRows:  len(ds.Sales),
		TargetRows: len(ds.Targets),
	}, nil
}

// Ready reports whether a dataset has been loaded at least once.
func (s *DashboardService) Ready() bool {
	return s.ready.Load()
}

// Loads returns how many source reads have been started.
func (s *DashboardService) Loads() int64 {
	return s.loads.Load()
}

// CacheCleaner exposes the dataset cache for periodic cleanup.
func (s *DashboardService) CacheCleaner() cache.Cleaner {
	return s.cache
}

// SourceName returns the configured backend name.
func (s *DashboardService) SourceName() string {
	return s.cfg.SourceName
}
