package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"dailyledger/internal/amqp"
	"dailyledger/internal/backend"
	"dailyledger/internal/cli"
	"dailyledger/internal/config"
	"dailyledger/internal/log"
	"dailyledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("mirror-worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("mirror-worker stopped gracefully")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config) error {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}

	sink, err := backend.NewFactory(logger).CreateSink(ctx, bcfg)
	if err != nil {
		return err
	}
	if sink.Cleanup != nil {
		defer func() {
			if err := sink.Cleanup(); err != nil {
				logger.Error("Failed to close sink", log.FieldError, err)
			}
		}()
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	w := worker.NewMirrorWorker(sink.Writer, logger)
	logger.Info("Starting mirror-worker",
		log.FieldOperation, log.OpStartup,
		"sink", cfg.MirrorSink,
		"queue", cfg.AMQPQueue)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeDocuments(gctx, w.HandleDocument)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	err = g.Wait()

	written, failed := w.Stats()
	logger.Info("Mirror worker totals", "written", written, "failed", failed)
	return err
}
