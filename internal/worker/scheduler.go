package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// ScheduleConfig selects when the mirror runs. Cron wins over Interval.
type ScheduleConfig struct {
	Cron       string
	Interval   time.Duration
	RunOnStart bool
	Location   *time.Location
}

// Scheduler runs a MirrorWorker on a gocron schedule.
type Scheduler struct {
	scheduler *gocron.Scheduler
	worker    *MirrorWorker
	cfg       ScheduleConfig
}

func NewScheduler(w *MirrorWorker, cfg ScheduleConfig) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	s := gocron.NewScheduler(cfg.Location)
	s.SingletonModeAll()
	return &Scheduler{scheduler: s, worker: w, cfg: cfg}
}

// Start schedules the job and returns; the scheduler stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	job := func() { s.runJob(ctx) }

	var err error
	switch {
	case s.cfg.Cron != "":
		_, err = s.scheduler.Cron(s.cfg.Cron).Do(job)
	case s.cfg.Interval > 0:
		_, err = s.scheduler.Every(s.cfg.Interval).WaitForSchedule().Do(job)
	default:
		err = errors.New("either a cron expression or an interval is required")
	}
	if err != nil {
		return fmt.Errorf("schedule mirror sync: %w", err)
	}

	slog.InfoContext(ctx, "Mirror scheduler started",
		"cron", s.cfg.Cron,
		"interval", s.cfg.Interval,
		"run_on_start", s.cfg.RunOnStart)

	if s.cfg.RunOnStart {
		go job()
	}
	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the scheduler; a running job finishes on its own.
func (s *Scheduler) Stop() {
	if s.scheduler.IsRunning() {
		slog.Info("Stopping mirror scheduler")
		s.scheduler.Stop()
	}
}

func (s *Scheduler) runJob(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.worker.SyncOnce(ctx); err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			slog.InfoContext(ctx, "Mirror sync already running, skipping")
			return
		}
		slog.ErrorContext(ctx, "Mirror sync failed", "error", err)
	}
}
