package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var errNoRedis = errors.New("redis not configured")

// Redis wraps redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds a client with short timeouts. poolSize <= 0 keeps the go-redis default.
// Blocking queue pops extend the read timeout on their own.
func NewRedis(addr string, poolSize int) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     poolSize,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy pings redis. It doubles as the /healthz check.
func (r *Redis) Healthy(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errNoRedis
	}
	return r.Client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
