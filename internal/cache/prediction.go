// Package cache provides an optional redis cache for complete risk
// assessment results.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/triage-risk-service/internal/domain"
	"github.com/triage-risk-service/internal/symptom"
)

const (
	keyPrefix  = "triage:risk:"
	defaultTTL = 10 * time.Minute
)

// NewRedisClient builds a client from a redis:// URL and pool settings.
func NewRedisClient(cfg domain.CacheConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}
	return redis.NewClient(opts), nil
}

// PredictionCache stores PredictionResult values in redis. Keys are scoped
// by a namespace that should change whenever the model or reference tables
// change, so stale results are never served after a redeploy.
type PredictionCache struct {
	client    redis.Cmdable
	namespace string
	ttl       time.Duration
	logger    *logrus.Logger
}

// NewPredictionCache wraps client. A zero ttl uses the default of ten minutes.
func NewPredictionCache(client redis.Cmdable, namespace string, ttl time.Duration, logger *logrus.Logger) *PredictionCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &PredictionCache{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
		logger:    logger,
	}
}

// Key derives the cache key for req. Symptoms are normalized but keep
// their order because recommendation order depends on it. The raw symptom
// count and the passthrough descriptors are hashed verbatim since the
// result echoes them.
func (c *PredictionCache) Key(req *domain.PredictionRequest) string {
	h := sha256.New()
	h.Write([]byte(c.namespace))
	h.Write([]byte{0})
	for _, s := range symptom.NormalizeAll(req.Symptoms) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	age := "-"
	if req.Age != nil {
		age = strconv.Itoa(*req.Age)
	}
	fmt.Fprintf(h, "\x01%d\x00%s\x00%q\x00%q\x00%q",
		len(req.Symptoms), age, req.Gender, req.Duration, req.Severity)
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for req, if any.
func (c *PredictionCache) Get(ctx context.Context, req *domain.PredictionRequest) (*domain.PredictionResult, bool, error) {
	data, err := c.client.Get(ctx, c.Key(req)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached result: %w", err)
	}

	var result domain.PredictionResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.WithError(err).Warn("Discarding undecodable cache entry")
		return nil, false, nil
	}
	return &result, true, nil
}

// Set stores result under the key for req.
func (c *PredictionCache) Set(ctx context.Context, req *domain.PredictionRequest, result *domain.PredictionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(req), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing cached result: %w", err)
	}
	return nil
}

// Health pings redis.
func (c *PredictionCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
