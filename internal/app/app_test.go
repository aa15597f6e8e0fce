package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualboard/internal/blob/local"
	"virtualboard/internal/cleanup"
	"virtualboard/internal/config"
	"virtualboard/internal/queue"
)

func TestOpenStoreMemoryAndBolt(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{"memory", "bolt"} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.App{StoreBackend: backend, BoltPath: filepath.Join(t.TempDir(), "vb.db")}
			repos, err := OpenStore(ctx, cfg, zerolog.Nop())
			require.NoError(t, err)
			defer repos.Close()
			assert.NoError(t, repos.Ping(ctx))

			list, err := repos.Classrooms.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}

	_, err := OpenStore(ctx, config.App{StoreBackend: "sqlite"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestOpenBlobs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.App{BlobBackend: "local", UploadDir: dir, UploadBaseURL: "/uploads"}
	b, err := OpenBlobs(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &local.Disk{}, b)
	assert.True(t, ServesUploads(cfg))

	_, err = OpenBlobs(ctx, config.App{BlobBackend: "cloudinary"})
	assert.Error(t, err)
	_, err = OpenBlobs(ctx, config.App{BlobBackend: "oss"})
	assert.Error(t, err)
	_, err = OpenBlobs(ctx, config.App{BlobBackend: "ftp"})
	assert.Error(t, err)
}

func TestQueues(t *testing.T) {
	q, parked, err := Queues(config.App{QueueBackend: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &queue.InMemory{}, q)
	assert.NotNil(t, parked)

	_, _, err = Queues(config.App{QueueBackend: "redis"}, nil)
	assert.Error(t, err)
}

func TestNewServicesWiresEveryService(t *testing.T) {
	ctx := context.Background()
	cfg := config.App{StoreBackend: "memory", BlobBackend: "memory", MaxMaterialBytes: 1 << 20, MaxImageBytes: 1 << 20, MaxRecordingBytes: 1 << 20}
	repos, err := OpenStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	blobs, err := OpenBlobs(ctx, cfg)
	require.NoError(t, err)

	svc := NewServices(cfg, repos, blobs, cleanup.NewScheduler(blobs, nil, zerolog.Nop()), zerolog.Nop())
	assert.NotNil(t, svc.Accounts)
	assert.NotNil(t, svc.Classrooms)
	assert.NotNil(t, svc.Lectures)
	assert.NotNil(t, svc.Recordings)

	rooms, err := svc.Classrooms.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}
