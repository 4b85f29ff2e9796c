package main

import (
	"context"
	"errors"
	"os"

	"finreport/internal/amqp"
	"finreport/internal/cli"
	"finreport/internal/log"
	"finreport/internal/worker"
)

func main() {
	cfg, logger := cli.Init()
	defer logger.Close()

	logger.Info("Starting ledger-worker")

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the ledger worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	importWorker := worker.NewImportWorker(repo, cfg.ImportDir, logger)

	// An empty database is seeded from LEDGER_PATH so reports work before
	// the first queued import.
	if err := importWorker.SeedIfEmpty(ctx, cfg.LedgerPath); err != nil {
		logger.Error("Failed to seed ledger", log.FieldError, err, log.FieldFile, cfg.LedgerPath)
	}

	consumeDone := make(chan struct{})
	go func() {
		defer close(consumeDone)
		if err := amqpClient.ConsumeLedgerImports(ctx, importWorker.HandleLedgerImport); err != nil &&
			!errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
		cancel()
	}()

	cli.GracefulShutdown(ctx, logger, cfg.ShutdownTimeout, func(context.Context) {
		logger.Info("Shutting down worker...")
		<-consumeDone
	})
}
