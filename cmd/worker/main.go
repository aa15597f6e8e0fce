package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"virtualboard/internal/app"
	"virtualboard/internal/cleanup"
	"virtualboard/internal/config"
	"virtualboard/internal/logging"
	"virtualboard/internal/store"
)

// Worker drains the cleanup queue, deleting blobs that lost their owning record.
func main() {
	cfg := config.Load()
	log := logging.Component(logging.New(cfg.LogLevel, cfg.LogFormat), "cleanup-worker")
	for _, w := range cfg.Warnings {
		log.Warn().Msg("config: " + w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("worker failed")
	}
}

func run(ctx context.Context, cfg config.App, log zerolog.Logger) error {
	if cfg.QueueBackend == "memory" {
		log.Warn().Msg("QUEUE_BACKEND=memory: jobs are drained inside the api process, nothing to do here")
		return nil
	}

	blobs, err := app.OpenBlobs(ctx, cfg)
	if err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPoolSize)
	defer redisClient.Close()
	if err := redisClient.Healthy(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable, consumer will keep retrying")
	}

	q, parked, err := app.Queues(cfg, redisClient)
	if err != nil {
		return err
	}

	worker := cleanup.NewWorker(blobs, q, parked, cleanup.WorkerOptions{
		MaxAttempts: cfg.CleanupMaxAttempts,
		RetryDelay:  cfg.CleanupRetryDelay,
	}, log)
	cr, err := worker.StartRequeue(ctx, cfg.CleanupRetrySchedule)
	if err != nil {
		return err
	}
	defer cr.Stop()

	log.Info().Str("blobs", cfg.BlobBackend).Str("schedule", cfg.CleanupRetrySchedule).Msg("worker started, waiting for jobs")
	return worker.Run(ctx)
}
