package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vendas/internal/amqp"
	"vendas/internal/core"
	"vendas/internal/services"
	ports "vendas/internal/sheets"
)

// ErrSyncInProgress is returned when a mirror run is already going.
var ErrSyncInProgress = errors.New("mirror sync already in progress")

// Publisher announces completed mirror runs.
type Publisher interface {
	PublishDatasetRefreshed(ctx context.Context, msg *amqp.DatasetRefreshedMessage) error
}

// MirrorWorker copies the upstream spreadsheet into the local mirror.
type MirrorWorker struct {
	upstream   ports.RawDataSource
	mirror     ports.MirrorWriter
	normalizer *services.Normalizer
	publisher  Publisher
	timeout    time.Duration

	mu        sync.Mutex
	running   bool
	lastRun   time.Time
	lastError error
}

// NewMirrorWorker wires a worker. publisher may be nil when no broker is
// configured.
func NewMirrorWorker(upstream ports.RawDataSource, mirror ports.MirrorWriter, normalizer *services.Normalizer, publisher Publisher, timeout time.Duration) *MirrorWorker {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &MirrorWorker{
		upstream:   upstream,
		mirror:     mirror,
		normalizer: normalizer,
		publisher:  publisher,
		timeout:    timeout,
	}
}

// SyncOnce reads upstream, checks that the tables normalize and replaces
// the mirror. A broken or empty upstream leaves the mirror untouched.
func (w *MirrorWorker) SyncOnce(ctx context.Context) (ports.MirrorRun, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ports.MirrorRun{}, ErrSyncInProgress
	}
	w.running = true
	w.mu.Unlock()

	run, err := w.sync(ctx)

	w.mu.Lock()
	w.running = false
	w.lastRun = time.Now()
	w.lastError = err
	w.mu.Unlock()
	return run, err
}

func (w *MirrorWorker) sync(ctx context.Context) (ports.MirrorRun, error) {
	start := time.Now()
	rctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	raw, err := w.upstream.ReadTables(rctx)
	if err != nil {
		return ports.MirrorRun{}, fmt.Errorf("read upstream: %w", err)
	}

	ds, err := w.normalizer.Normalize(ctx, raw)
	if err != nil {
		return ports.MirrorRun{}, fmt.Errorf("upstream rejected: %w", err)
	}
	if ds.IsEmpty() {
		return ports.MirrorRun{}, fmt.Errorf("upstream rejected: %w", core.ErrNoData)
	}

	run, err := w.mirror.ReplaceDataset(ctx, raw)
	if err != nil {
		return ports.MirrorRun{}, fmt.Errorf("write mirror: %w", err)
	}

	slog.InfoContext(ctx, "Mirror sync completed",
		"mirror_run_id", run.ID,
		"ledger_rows", run.LedgerRows,
		"target_rows", run.TargetRows,
		"duration_ms", time.Since(start).Milliseconds())

	w.publish(ctx, run)
	return run, nil
}

func (w *MirrorWorker) publish(ctx context.Context, run ports.MirrorRun) {
	if w.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping refresh message")
		return
	}
	msg := amqp.NewDatasetRefreshedMessage(run.ID, run.LedgerRows, run.TargetRows)
	if err := w.publisher.PublishDatasetRefreshed(ctx, msg); err != nil {
		// the mirror is already written; servers pick it up when their cache expires
		slog.ErrorContext(ctx, "Failed to publish refresh message", "mirror_run_id", run.ID, "error", err)
	}
}

// Status returns the time and outcome of the last completed run.
func (w *MirrorWorker) Status() (time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun, w.lastError
}
