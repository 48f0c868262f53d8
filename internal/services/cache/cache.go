package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/aula-ai-tutor-go/internal/config"
	"github.com/aula-ai-tutor-go/internal/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// ResponseCache caches generated responses and parsed content so
// repeated questions do not spend provider quota.
type ResponseCache struct {
	cache      *cache.Cache
	enabled    bool
	defaultTTL time.Duration
	contentTTL time.Duration
	maxSize    int
	metrics    *middleware.Metrics
	logger     *logrus.Logger
}

// NewResponseCache creates a response cache from configuration.
func NewResponseCache(cfg *config.CacheConfig, metrics *middleware.Metrics, logger *logrus.Logger) *ResponseCache {
	c := cache.New(cfg.DefaultTTL, 10*time.Minute)

	logger.WithFields(logrus.Fields{
		"enabled":     cfg.Enabled,
		"default_ttl": cfg.DefaultTTL,
		"content_ttl": cfg.ContentTTL,
	}).Info("Response cache initialized")

	return &ResponseCache{
		cache:      c,
		enabled:    cfg.Enabled,
		defaultTTL: cfg.DefaultTTL,
		contentTTL: cfg.ContentTTL,
		maxSize:    cfg.MaxSize,
		metrics:    metrics,
		logger:     logger,
	}
}

// Key derives a cache key from its parts. The hash keeps arbitrary
// message text out of the key space.
func Key(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])
}

// Get looks up a cached value.
func (c *ResponseCache) Get(key string) (interface{}, bool) {
	if !c.enabled {
		return nil, false
	}

	value, found := c.cache.Get(key)
	if found {
		c.metrics.RecordCacheHit()
		c.logger.WithField("key", key[:12]).Debug("Cache hit")
		return value, true
	}

	c.metrics.RecordCacheMiss()
	return nil, false
}

// Set stores a value with the default TTL.
func (c *ResponseCache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetContent stores a value with the longer content TTL, used for
// generated study material that changes rarely.
func (c *ResponseCache) SetContent(key string, value interface{}) {
	c.SetWithTTL(key, value, c.contentTTL)
}

// SetWithTTL stores a value with an explicit TTL.
func (c *ResponseCache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	if !c.enabled {
		return
	}

	if c.maxSize > 0 && c.cache.ItemCount() >= c.maxSize {
		c.cache.DeleteExpired()
		if c.cache.ItemCount() >= c.maxSize {
			c.logger.Warn("Cache full, skipping set")
			return
		}
	}

	c.cache.Set(key, value, ttl)
}

// Delete removes a cached value.
func (c *ResponseCache) Delete(key string) {
	c.cache.Delete(key)
}

// Flush removes all cached values.
func (c *ResponseCache) Flush() {
	c.cache.Flush()
}

// ItemCount returns the number of cached entries, expired included.
func (c *ResponseCache) ItemCount() int {
	return c.cache.ItemCount()
}
