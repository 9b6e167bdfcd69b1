package main

import (
	"vendas/internal/amqp"
	"vendas/internal/backend"
	"vendas/internal/cli"
	"vendas/internal/config"
	applog "vendas/internal/log"
	"vendas/internal/services"
	"vendas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentMirror)

	cfg := cli.MustLoadConfig(logger, (*config.Config).ValidateWorker)
	logger.Info("Starting vendas-worker",
		"upstream", cfg.MirrorUpstream,
		"mirror_path", cfg.SQLiteDBPath,
		"schedule", cfg.MirrorSchedule,
		"interval", cfg.MirrorInterval.String())

	loc, err := cfg.Location()
	if err != nil {
		cli.Fatal(logger, "Failed to resolve display timezone", err, "timezone", cfg.DisplayTimezone)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	factory := backend.NewFactory(logger.Logger)

	upstreamCfg, err := backend.UpstreamFromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid upstream configuration", err)
	}
	upstream, err := factory.CreateBackend(ctx, upstreamCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize upstream", err, "backend", cfg.MirrorUpstream)
	}
	defer upstream.Close()

	mirrorCfg := upstreamCfg
	mirrorCfg.Type = backend.SQLiteBackend
	mirrorCfg.SQLiteDBPath = cfg.SQLiteDBPath
	mirror, err := factory.CreateBackend(ctx, mirrorCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize SQLite mirror", err, "path", cfg.SQLiteDBPath)
	}
	defer mirror.Close()

	var publisher worker.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("AMQP unavailable, refresh events disabled", applog.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	w := worker.NewMirrorWorker(upstream.Source, mirror.Mirror,
		services.NewNormalizer(services.DefaultColumns()), publisher, cfg.SourceTimeout)

	scheduler := worker.NewScheduler(w, worker.ScheduleConfig{
		Cron:       cfg.MirrorSchedule,
		Interval:   cfg.MirrorInterval,
		RunOnStart: true,
		Location:   loc,
	})
	if err := scheduler.Start(ctx); err != nil {
		cli.Fatal(logger, "Failed to start mirror scheduler", err)
	}

	<-ctx.Done()
	scheduler.Stop()
	logger.Info("Worker stopped gracefully")
}
