package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/collegefinder/internal/domain/model"
	"github.com/okian/collegefinder/pkg/logger"
	"github.com/okian/collegefinder/pkg/metrics"
)

const (
	defaultTTL        = 10 * time.Minute
	defaultPrefix     = "collegefinder:recs"
	defaultFailures   = 5
	defaultOpenPeriod = 30 * time.Second
)

// Option applies a configuration option to the RedisCache.
type Option func(*RedisCache)

// WithTTL sets how long entries live.
func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPrefix sets the key namespace.
func WithPrefix(prefix string) Option {
	return func(c *RedisCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open before probing again.
func WithBreaker(maxFailures int, openFor time.Duration) Option {
	return func(c *RedisCache) {
		if maxFailures > 0 {
			c.maxFailures = uint32(maxFailures)
		}
		if openFor > 0 {
			c.openFor = openFor
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *RedisCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// RedisCache keeps recommendation lists in Redis. Every call goes through a
// circuit breaker so an unreachable server costs nothing once it trips.
//
// Keys are <prefix>:<generation>:<profile digest>; Invalidate bumps the
// generation counter so old entries simply expire.
type RedisCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	ttl     time.Duration
	prefix  string
	logger  logger.Logger

	maxFailures uint32
	openFor     time.Duration
}

// NewRedisCache connects to url (redis://...). The connection is not checked;
// a dead server only opens the breaker.
func NewRedisCache(url string, opts ...Option) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	c := &RedisCache{
		client: redis.NewClient(opt),
		ttl:    defaultTTL,
		prefix: defaultPrefix,
		logger: logger.Nop(),

		maxFailures: defaultFailures,
		openFor:     defaultOpenPeriod,
	}
	for _, o := range opts {
		o(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "redis-cache",
		Timeout: c.openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(int(to))
			c.logger.Warn(context.Background(), "cache circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
	metrics.UpdateBreakerState(int(gobreaker.StateClosed))
	return c, nil
}

func (c *RedisCache) generationKey() string { return c.prefix + ":gen" }

func (c *RedisCache) generation(ctx context.Context) (string, error) {
	b, err := c.breaker.Execute(func() ([]byte, error) {
		return c.client.Get(ctx, c.generationKey()).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *RedisCache) key(ctx context.Context, p model.StudentProfile) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return c.prefix + ":" + gen + ":" + ProfileKey(p), nil
}

// Recommendations implements Cache.
func (c *RedisCache) Recommendations(ctx context.Context, p model.StudentProfile) ([]model.Recommendation, bool) {
	key, err := c.key(ctx, p)
	if err != nil {
		c.fail(ctx, "generation", err)
		return nil, false
	}
	b, err := c.breaker.Execute(func() ([]byte, error) {
		return c.client.Get(ctx, key).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss()
		return nil, false
	}
	if err != nil {
		c.fail(ctx, "get", err)
		return nil, false
	}
	var recs []model.Recommendation
	if err := json.Unmarshal(b, &recs); err != nil {
		c.fail(ctx, "decode", err)
		return nil, false
	}
	metrics.RecordCacheHit()
	return recs, true
}

// StoreRecommendations implements Cache.
func (c *RedisCache) StoreRecommendations(ctx context.Context, p model.StudentProfile, recs []model.Recommendation) {
	key, err := c.key(ctx, p)
	if err != nil {
		c.fail(ctx, "generation", err)
		return
	}
	data, err := json.Marshal(recs)
	if err != nil {
		c.fail(ctx, "encode", err)
		return
	}
	if _, err := c.breaker.Execute(func() ([]byte, error) {
		return nil, c.client.Set(ctx, key, data, c.ttl).Err()
	}); err != nil {
		c.fail(ctx, "set", err)
	}
}

// Invalidate implements Cache.
func (c *RedisCache) Invalidate(ctx context.Context) {
	if _, err := c.breaker.Execute(func() ([]byte, error) {
		return nil, c.client.Incr(ctx, c.generationKey()).Err()
	}); err != nil {
		c.fail(ctx, "invalidate", err)
	}
}

// State returns the breaker state.
func (c *RedisCache) State() gobreaker.State { return c.breaker.State() }

// Close implements Cache.
func (c *RedisCache) Close() error { return c.client.Close() }

func (c *RedisCache) fail(ctx context.Context, op string, err error) {
	metrics.RecordCacheError()
	c.logger.Debug(ctx, "cache operation failed", logger.String("op", op), logger.Error(err))
}
