package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"vendas/internal/amqp"
	"vendas/internal/backend"
	"vendas/internal/cache"
	"vendas/internal/cli"
	"vendas/internal/config"
	apphttp "vendas/internal/http"
	applog "vendas/internal/log"
	"vendas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	cfg := cli.MustLoadConfig(logger, (*config.Config).Validate)
	logger.Info("Starting vendas dashboard", cli.Describe(cfg)...)

	loc, err := cfg.Location()
	if err != nil {
		cli.Fatal(logger, "Failed to resolve display timezone", err, "timezone", cfg.DisplayTimezone)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize data backend", err, "backend", cfg.DataBackend)
	}
	defer func() {
		if err := result.Close(); err != nil {
			logger.Error("Failed to close data backend", applog.FieldError, err)
		}
	}()

	dash := services.NewDashboardService(result.Source, services.DashboardConfig{
		SourceName:    cfg.DataBackend,
		CacheTTL:      cfg.CacheTTL,
		SourceTimeout: cfg.SourceTimeout,
	})

	cacheManager := cache.NewManager()
	cacheManager.Register(dash.CacheCleaner())
	cacheManager.StartCleanup(cfg.CacheTTL)
	defer cacheManager.Stop()

	// Refresh events are optional; without a broker the cache simply expires.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("AMQP unavailable, dashboard will rely on cache expiry", applog.FieldError, err)
		} else {
			defer amqpClient.Close()
			go func() {
				if err := amqpClient.ConsumeDatasetRefreshed(ctx, dash.HandleDatasetRefreshed); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Refresh event consumption stopped", applog.FieldError, err)
				}
			}()
			logger.Info("Listening for dataset refresh events", "exchange", cfg.AMQPExchange, "queue", amqpClient.QueueName())
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, dash, apphttp.ServerConfig{
		Location:        loc,
		ReloadRateLimit: cfg.ReloadRateLimit,
		Logger:          logger,
	})
	srv.ReadTimeout = 10 * time.Second
	// a cold load may take the whole source timeout before the page renders
	srv.WriteTimeout = cfg.SourceTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", applog.FieldError, err)
		}
	}()

	// Warm the cache so the first visitor does not pay for the load.
	go func() {
		if _, err := dash.Dataset(ctx); err != nil {
			logger.Warn("Initial dataset load failed", applog.FieldError, err)
		}
	}()

	logger.Info("HTTP server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server failed", err)
	}
	logger.Info("Server stopped gracefully")
}
