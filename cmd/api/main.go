package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"virtualboard/internal/app"
	"virtualboard/internal/cleanup"
	"virtualboard/internal/config"
	"virtualboard/internal/httpapi"
	"virtualboard/internal/httpmiddleware"
	"virtualboard/internal/logging"
	"virtualboard/internal/store"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	for _, w := range cfg.Warnings {
		log.Warn().Msg("config: " + w)
	}

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := app.OpenStore(ctx, cfg, logging.Component(log, "store"))
	if err != nil {
		return err
	}
	defer func() {
		if err := repos.Close(); err != nil {
			log.Warn().Err(err).Msg("store close")
		}
	}()

	blobs, err := app.OpenBlobs(ctx, cfg)
	if err != nil {
		return err
	}

	var redisClient *store.Redis
	if cfg.QueueBackend == "redis" || cfg.RateLimitBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr, cfg.RedisPoolSize)
		defer redisClient.Close()
		if err := redisClient.Healthy(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable")
		}
	}

	q, parked, err := app.Queues(cfg, redisClient)
	if err != nil {
		return err
	}
	reclaim := cleanup.NewScheduler(blobs, q, logging.Component(log, "cleanup"))

	// Without a shared queue nobody else drains cleanup jobs, so run the worker here.
	if cfg.QueueBackend == "memory" {
		worker := cleanup.NewWorker(blobs, q, parked, cleanup.WorkerOptions{
			MaxAttempts: cfg.CleanupMaxAttempts,
			RetryDelay:  cfg.CleanupRetryDelay,
		}, logging.Component(log, "cleanup-worker"))
		cr, err := worker.StartRequeue(ctx, cfg.CleanupRetrySchedule)
		if err != nil {
			return err
		}
		defer cr.Stop()
		go func() {
			if err := worker.Run(ctx); err != nil {
				log.Error().Err(err).Msg("cleanup worker stopped")
			}
		}()
	}

	var limiter httpmiddleware.Limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, "virtualboard:ratelimit", cfg.RateLimitPerMin)
	}

	health := map[string]httpapi.HealthCheck{"db": repos.Ping}
	if redisClient != nil {
		health["redis"] = redisClient.Healthy
	}

	svc := app.NewServices(cfg, repos, blobs, reclaim, log)
	opts := httpapi.Options{
		SigningKey:         cfg.JWTSigningKey,
		Issuer:             cfg.JWTIssuer,
		TokenTTL:           cfg.TokenTTL,
		CORSOrigins:        cfg.CORSOrigins,
		MaxMultipartMemory: 32 << 20,
	}
	if app.ServesUploads(cfg) {
		opts.UploadDir, opts.UploadPath = cfg.UploadDir, cfg.UploadBaseURL
	}
	router := httpapi.NewRouter(httpapi.Deps{
		Accounts:   svc.Accounts,
		Classrooms: svc.Classrooms,
		Lectures:   svc.Lectures,
		Recordings: svc.Recordings,
		Limiter:    limiter,
		Health:     health,
		Log:        logging.Component(log, "http"),
	}, opts)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// long enough for a recording upload
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("store", cfg.StoreBackend).Str("blobs", cfg.BlobBackend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
	case err := <-errCh:
		return err
	}

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server forced shutdown")
	}
	log.Info().Msg("server exited")
	return nil
}

