package database

import (
	"MediCare/config"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrLockNotAcquired is returned when every attempt to take a lock failed.
var ErrLockNotAcquired = errors.New("lock not acquired")

const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// NewRedisClient creates a Redis client from the application config and pings it.
func NewRedisClient(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = cfg.RedisPoolSize
	opt.MinIdleConns = cfg.RedisMinIdleConns
	opt.DialTimeout = cfg.RedisDialTimeout
	opt.ReadTimeout = cfg.RedisReadTimeout
	opt.MaxRetries = cfg.RedisMaxRetries

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis server: %w", err)
	}

	log.Info().
		Int("pool_size", opt.PoolSize).
		Int("min_idle_conns", opt.MinIdleConns).
		Dur("dial_timeout", opt.DialTimeout).
		Dur("read_timeout", opt.ReadTimeout).
		Int("max_retries", opt.MaxRetries).
		Msg("redis client initialized")
	return client, nil
}

// Locker hands out short-lived distributed locks backed by Redis.
type Locker struct {
	client  *redis.Client
	ttl     time.Duration
	retries int
	delay   time.Duration
	script  *redis.Script
}

// NewLocker builds a Locker. Acquire tries up to retries times, sleeping
// delay between attempts.
func NewLocker(client *redis.Client, ttl time.Duration, retries int, delay time.Duration) *Locker {
	if retries < 1 {
		retries = 1
	}
	return &Locker{
		client:  client,
		ttl:     ttl,
		retries: retries,
		delay:   delay,
		script:  redis.NewScript(releaseLockScript),
	}
}

// Acquire takes the lock for key and returns its release func.
func (l *Locker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	if l.client == nil {
		return nil, errors.New("Redis client is not initialized")
	}

	value := uuid.NewString()
	for attempt := 0; attempt < l.retries; attempt++ {
		ok, err := l.client.SetNX(ctx, key, value, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return func(ctx context.Context) error {
				return l.release(ctx, key, value)
			}, nil
		}
		if attempt < l.retries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.delay):
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
}

func (l *Locker) release(ctx context.Context, key, value string) error {
	result, err := l.script.Run(ctx, l.client, []string{key}, value).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if n, ok := result.(int64); !ok || n == 0 {
		return errors.New("lock release failed: not the lock owner")
	}
	return nil
}

// LogPoolStats logs the connection pool statistics for monitoring.
func LogPoolStats(client *redis.Client, log zerolog.Logger) {
	stats := client.PoolStats()
	log.Debug().
		Uint32("total", stats.TotalConns).
		Uint32("idle", stats.IdleConns).
		Uint32("stale", stats.StaleConns).
		Msg("redis pool stats")
}
