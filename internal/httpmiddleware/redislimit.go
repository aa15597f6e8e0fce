package httpmiddleware

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindow is a fixed-window counter shared by every API replica.
type RedisWindow struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisWindow allows perMinute requests per key per minute.
func NewRedisWindow(client *redis.Client, prefix string, perMinute int) *RedisWindow {
	if prefix == "" {
		prefix = "virtualboard:ratelimit"
	}
	return &RedisWindow{client: client, prefix: prefix, limit: perMinute, window: time.Minute, now: time.Now}
}

// Allow increments the counter for the current window.
func (l *RedisWindow) Allow(ctx context.Context, key string) (bool, error) {
	slot := l.now().Unix() / int64(l.window.Seconds())
	k := l.prefix + ":" + key + ":" + strconv.FormatInt(slot, 10)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(l.limit), nil
}
