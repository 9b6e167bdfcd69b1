package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendas/internal/amqp"
	"vendas/internal/core"
	"vendas/internal/services"
	ports "vendas/internal/sheets"
	"vendas/internal/sheets/memory"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.DatasetRefreshedMessage
	err  error
}

func (p *recordingPublisher) PublishDatasetRefreshed(_ context.Context, msg *amqp.DatasetRefreshedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func newWorker(upstream, mirror *memory.Store, pub Publisher) *MirrorWorker {
	return NewMirrorWorker(upstream, mirror, services.NewNormalizer(services.DefaultColumns()), pub, time.Second)
}

func TestSyncOnceCopiesAndPublishes(t *testing.T) {
	upstream := memory.New(memory.Demo(ports.SheetNames{}))
	mirror := memory.New(core.RawDataset{})
	pub := &recordingPublisher{}

	run, err := newWorker(upstream, mirror, pub).SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, run.LedgerRows)
	assert.Equal(t, 1, run.TargetRows)

	got, err := mirror.ReadTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, memory.Demo(ports.SheetNames{}), got)

	require.Equal(t, 1, pub.count())
	assert.Equal(t, run.ID, pub.msgs[0].MirrorRunID)
	assert.Equal(t, 6, pub.msgs[0].LedgerRows)
}

func TestSyncOnceKeepsMirrorOnBrokenUpstream(t *testing.T) {
	good := memory.Demo(ports.SheetNames{})
	mirror := memory.New(good)
	pub := &recordingPublisher{}

	broken := memory.Demo(ports.SheetNames{})
	broken.Ledger.Rows = append(broken.Ledger.Rows, []string{"ontem", "1", "1", "2024", "3"})
	w := newWorker(memory.New(broken), mirror, pub)

	_, err := w.SyncOnce(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidDate))

	got, _ := mirror.ReadTables(context.Background())
	assert.Equal(t, good, got)
	assert.Zero(t, pub.count())

	last, lastErr := w.Status()
	assert.False(t, last.IsZero())
	assert.Equal(t, err, lastErr)
}

func TestSyncOnceRejectsEmptyUpstream(t *testing.T) {
	empty := memory.Demo(ports.SheetNames{})
	empty.Ledger.Rows = nil
	mirror := memory.New(memory.Demo(ports.SheetNames{}))

	_, err := newWorker(memory.New(empty), mirror, nil).SyncOnce(context.Background())
	assert.True(t, errors.Is(err, core.ErrNoData))

	got, _ := mirror.ReadTables(context.Background())
	assert.Len(t, got.Ledger.Rows, 6)
}

func TestSyncOnceUpstreamUnavailable(t *testing.T) {
	upstream := memory.New(memory.Demo(ports.SheetNames{}))
	upstream.FailWith(core.ErrSourceUnavailable)

	_, err := newWorker(upstream, memory.New(core.RawDataset{}), nil).SyncOnce(context.Background())
	assert.True(t, errors.Is(err, core.ErrSourceUnavailable))
	assert.True(t, core.IsLoadError(err))
}

func TestSyncOncePublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	w := newWorker(memory.New(memory.Demo(ports.SheetNames{})), memory.New(core.RawDataset{}), pub)

	_, err := w.SyncOnce(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, pub.count())
}

// blockingSource holds ReadTables until released.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSource) ReadTables(ctx context.Context) (core.RawDataset, error) {
	close(b.started)
	<-b.release
	return memory.Demo(ports.SheetNames{}), nil
}

func TestSyncOnceRejectsConcurrentRun(t *testing.T) {
	src := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	w := NewMirrorWorker(src, memory.New(core.RawDataset{}), services.NewNormalizer(services.DefaultColumns()), nil, time.Second)

	done := make(chan error, 1)
	go func() {
		_, err := w.SyncOnce(context.Background())
		done <- err
	}()
	<-src.started

	_, err := w.SyncOnce(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(src.release)
	assert.NoError(t, <-done)
}

func TestSchedulerRunsOnStart(t *testing.T) {
	mirror := memory.New(core.RawDataset{})
	pub := &recordingPublisher{}
	w := newWorker(memory.New(memory.Demo(ports.SheetNames{})), mirror, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewScheduler(w, ScheduleConfig{Interval: time.Hour, RunOnStart: true})
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	require.Eventually(t, func() bool { return pub.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	got, err := mirror.ReadTables(context.Background())
	require.NoError(t, err)
	assert.Len(t, got.Ledger.Rows, 6)
}

func TestSchedulerRequiresSchedule(t *testing.T) {
	w := newWorker(memory.New(core.RawDataset{}), memory.New(core.RawDataset{}), nil)
	err := NewScheduler(w, ScheduleConfig{}).Start(context.Background())
	assert.Error(t, err)
}

func TestSchedulerRejectsBadCron(t *testing.T) {
	w := newWorker(memory.New(core.RawDataset{}), memory.New(core.RawDataset{}), nil)
	err := NewScheduler(w, ScheduleConfig{Cron: "not a cron"}).Start(context.Background())
	assert.Error(t, err)
}
