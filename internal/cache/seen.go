package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"jobscout/pkg/utils"
)

const seenKeyPrefix = "jobscout:seen:"

// SeenCache remembers URLs the pipeline has already processed so
// repeat discoveries skip straight past extraction. Backed by Redis
// when a URL is configured; falls back to an in-process map otherwise,
// which still dedupes within a single run.
type SeenCache struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.RWMutex
	local map[string]struct{}

	logger *logrus.Logger
}

// New creates a SeenCache. An empty redisURL or an unreachable server
// yields a memory-only cache rather than an error.
func New(redisURL string, ttl time.Duration) *SeenCache {
	logger := utils.GetLogger()

	sc := &SeenCache{
		ttl:    ttl,
		local:  make(map[string]struct{}),
		logger: logger,
	}

	if redisURL == "" {
		logger.Info("No Redis URL configured, seen-URL cache is in-memory only")
		return sc
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.WithError(err).Warn("Invalid Redis URL, seen-URL cache is in-memory only")
		return sc
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unreachable, seen-URL cache is in-memory only")
		_ = client.Close()
		return sc
	}

	sc.client = client
	logger.Info("Seen-URL cache connected to Redis")
	return sc
}

// Seen reports whether a URL was already processed. Redis errors
// degrade to the local map; a cache miss is always safe, it just costs
// one redundant extraction.
func (sc *SeenCache) Seen(ctx context.Context, url string) bool {
	if sc.client != nil {
		n, err := sc.client.Exists(ctx, seenKeyPrefix+url).Result()
		if err == nil {
			return n > 0
		}
		sc.logger.WithError(err).Debug("Redis lookup failed, using local cache")
	}

	sc.mu.RLock()
	defer sc.mu.RUnlock()
	_, ok := sc.local[url]
	return ok
}

// Mark records a URL as processed
func (sc *SeenCache) Mark(ctx context.Context, url string) {
	if sc.client != nil {
		if err := sc.client.Set(ctx, seenKeyPrefix+url, 1, sc.ttl).Err(); err != nil {
			sc.logger.WithError(err).Debug("Redis write failed, using local cache")
		}
	}

	sc.mu.Lock()
	sc.local[url] = struct{}{}
	sc.mu.Unlock()
}

// Close releases the Redis connection if one exists
func (sc *SeenCache) Close() error {
	if sc.client != nil {
		return sc.client.Close()
	}
	return nil
}
