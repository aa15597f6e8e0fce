// Package app assembles stores, blob backends, queues and services from configuration. The api,
// worker and admin commands share it.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"virtualboard/internal/account"
	"virtualboard/internal/blob"
	"virtualboard/internal/blob/b2blob"
	"virtualboard/internal/blob/cloudinary"
	"virtualboard/internal/blob/local"
	"virtualboard/internal/blob/ossblob"
	"virtualboard/internal/classroom"
	"virtualboard/internal/cleanup"
	"virtualboard/internal/config"
	"virtualboard/internal/lecture"
	"virtualboard/internal/logging"
	"virtualboard/internal/queue"
	"virtualboard/internal/recording"
	"virtualboard/internal/store"
	"virtualboard/internal/store/boltstore"
	"virtualboard/internal/store/memstore"
	"virtualboard/internal/store/mongostore"
	"virtualboard/internal/store/pgstore"
)

// Redis keys of the cleanup queues.
const (
	CleanupQueueKey = "virtualboard:cleanup"
	ParkedQueueKey  = "virtualboard:cleanup:parked"
)

// Repos are the repositories of one store backend.
type Repos struct {
	Accounts   account.Repository
	Classrooms classroom.Repository
	Lectures   lecture.Repository
	Recordings recording.Repository
	// Ping reports backend reachability for /healthz.
	Ping  func(ctx context.Context) error
	Close func() error
}

// OpenStore connects to cfg.StoreBackend and applies its schema or indexes.
func OpenStore(ctx context.Context, cfg config.App, log zerolog.Logger) (*Repos, error) {
	switch cfg.StoreBackend {
	case "postgres":
		db, err := store.NewDB(ctx, cfg.DatabaseURL, store.PoolOptions{
			MaxOpen:     cfg.DBMaxOpenConns,
			MaxIdle:     cfg.DBMaxIdleConns,
			MaxLifetime: cfg.DBConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pgstore.Migrate(ctx, db.Client); err != nil {
			_ = db.Close()
			return nil, err
		}
		s := pgstore.New(db.Client)
		log.Info().Msg("postgres store ready")
		return &Repos{
			Accounts: s.Accounts(), Classrooms: s.Classrooms(), Lectures: s.Lectures(), Recordings: s.Recordings(),
			Ping:  db.Client.PingContext,
			Close: db.Close,
		}, nil

	case "mongo":
		m, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		s := mongostore.New(m.DB)
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = m.Close(context.Background())
			return nil, err
		}
		log.Info().Str("database", cfg.MongoDatabase).Msg("mongo store ready")
		return &Repos{
			Accounts: s.Accounts(), Classrooms: s.Classrooms(), Lectures: s.Lectures(), Recordings: s.Recordings(),
			Ping:  func(ctx context.Context) error { return m.Client.Ping(ctx, nil) },
			Close: func() error { return m.Close(context.Background()) },
		}, nil

	case "bolt":
		s, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.BoltPath).Msg("bolt store ready")
		return &Repos{
			Accounts: s.Accounts(), Classrooms: s.Classrooms(), Lectures: s.Lectures(), Recordings: s.Recordings(),
			Ping:  func(context.Context) error { return nil },
			Close: s.Close,
		}, nil

	case "memory":
		s := memstore.New()
		log.Warn().Msg("memory store: data is lost on restart")
		return &Repos{
			Accounts: s.Accounts(), Classrooms: s.Classrooms(), Lectures: s.Lectures(), Recordings: s.Recordings(),
			Ping:  func(context.Context) error { return nil },
			Close: func() error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

// OpenBlobs returns the object store selected by cfg.BlobBackend.
func OpenBlobs(ctx context.Context, cfg config.App) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "local":
		return local.New(cfg.UploadDir, cfg.UploadBaseURL)
	case "cloudinary":
		if cfg.CloudinaryURL != "" {
			return cloudinary.NewFromURL(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		}
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			return nil, fmt.Errorf("cloudinary: CLOUDINARY_URL or CLOUDINARY_CLOUD_NAME/API_KEY/API_SECRET required")
		}
		return cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder), nil
	case "oss":
		return ossblob.New(ossblob.Config{
			Endpoint:        cfg.OSSEndpoint,
			AccessKeyID:     cfg.OSSAccessKey,
			AccessKeySecret: cfg.OSSSecretKey,
			Bucket:          cfg.OSSBucket,
			PublicBaseURL:   cfg.OSSPublicBaseURL,
		})
	case "b2":
		return b2blob.New(ctx, b2blob.Config{
			AccountID:     cfg.B2AccountID,
			AppKey:        cfg.B2AppKey,
			Bucket:        cfg.B2Bucket,
			PublicBaseURL: cfg.B2PublicBaseURL,
		})
	case "memory":
		return blob.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown BLOB_BACKEND %q", cfg.BlobBackend)
}

// ServesUploads reports whether the API must serve stored files itself.
func ServesUploads(cfg config.App) bool {
	return cfg.BlobBackend == "local" && strings.HasPrefix(cfg.UploadBaseURL, "/")
}

// Queues returns the cleanup queue and its parking lot. redis may be nil for the memory backend.
func Queues(cfg config.App, redis *store.Redis) (queue.Queue, cleanup.ParkingLot, error) {
	switch cfg.QueueBackend {
	case "memory":
		return queue.NewInMemory(256), queue.NewInMemory(256), nil
	case "redis":
		if redis == nil {
			return nil, nil, fmt.Errorf("redis queue needs REDIS_ADDR")
		}
		return queue.NewRedisQueue(redis.Client, CleanupQueueKey), queue.NewRedisQueue(redis.Client, ParkedQueueKey), nil
	}
	return nil, nil, fmt.Errorf("unknown QUEUE_BACKEND %q", cfg.QueueBackend)
}

// Services are the domain services behind the API.
type Services struct {
	Accounts   *account.Service
	Classrooms *classroom.Service
	Lectures   *lecture.Service
	Recordings *recording.Service
}

// NewServices wires the domain services over repos.
func NewServices(cfg config.App, repos *Repos, blobs blob.Store, reclaim blob.Reclaimer, log zerolog.Logger) Services {
	rooms := classroom.NewService(repos.Classrooms, repos.Accounts, logging.Component(log, "classroom"))
	lectures := lecture.NewService(repos.Lectures, rooms, blobs, reclaim, lecture.Policies{
		Material: blob.MaterialPolicy(cfg.MaxMaterialBytes),
		Canvas:   lecture.Policy(cfg.MaxImageBytes),
	}, logging.Component(log, "lecture"))
	return Services{
		Accounts: account.NewService(repos.Accounts, blobs, reclaim, account.Options{
			AvatarPolicy: blob.ImagePolicy(cfg.MaxImageBytes),
		}, logging.Component(log, "account")),
		Classrooms: rooms,
		Lectures:   lectures,
		Recordings: recording.NewService(repos.Recordings, lectures, blobs, reclaim,
			blob.VideoPolicy(cfg.MaxRecordingBytes), logging.Component(log, "recording")),
	}
}
