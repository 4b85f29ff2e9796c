package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"finreport/internal/amqp"
	"finreport/internal/cli"
	apphttp "finreport/internal/http"
	"finreport/internal/log"
	"finreport/internal/middleware/ratelimit"
)

func main() {
	cfg, logger := cli.Init()
	defer logger.Close()

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	stack, err := cli.NewReportStack(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize reports", log.FieldError, err, "backend", cfg.LedgerBackend)
		os.Exit(1)
	}
	defer stack.Close()
	stack.Caches.StartCleanup(cfg.CacheCleanupInterval)

	opts := apphttp.Options{
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		Logger: logger,
	}

	// Imports are queued only when a broker is configured.
	if cfg.AMQPEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		opts.Publisher = amqpClient
	} else {
		logger.Info("AMQP disabled, ledger import endpoint will return 503")
	}

	if store := stack.Backend.Store; store != nil {
		opts.History = store
		opts.Ready = store.Ping
	}

	srv := apphttp.NewServer(":"+cfg.Port, stack.Service, opts)

	go func() {
		logger.Info("Starting finreport server",
			"port", cfg.Port,
			"backend", cfg.LedgerBackend,
			"amqp_enabled", cfg.AMQPEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			cancel()
		}
	}()

	cli.GracefulShutdown(ctx, logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	m := srv.Metrics()
	logger.Info("Server stopped",
		"total_requests", m.TotalRequests,
		"avg_response_ms", m.AverageResponseTime.Milliseconds())
}
