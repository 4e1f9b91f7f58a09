package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go-contact-backend/internal/delivery/http/response"
	"go-contact-backend/pkg/metrics"
	"go-contact-backend/pkg/security"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// RateLimitMessage is the body of a 429 response
const RateLimitMessage = "Too many requests, please try again later."

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Time window duration
	Window time.Duration
	// Custom key extractor (default: IP-based)
	KeyFunc func(*gin.Context) string
	// Key prefix for Redis (default: "rl:ip:")
	KeyPrefix string
	// Whether to fail closed (reject) when Redis is unavailable
	FailClosed bool
	// Optional shared store; the in-memory store is used without it
	Redis *goredis.Client
	// Optional observers
	SecurityLogger *security.SecurityLogger
	Metrics        *metrics.Recorder
	// Clock, replaced in tests
	Now func() time.Time
}

// RateLimitStore counts hits for a key inside a fixed window.
type RateLimitStore interface {
	Hit(ctx context.Context, key string, window time.Duration, now time.Time) (count int, resetAt time.Time, err error)
}

// rateLimitEntry tracks request count for a key (in-memory store)
type rateLimitEntry struct {
	count   int
	resetAt time.Time
	mu      sync.Mutex
}

// MemoryStore keeps counters in process memory. Expired entries are swept
// lazily from Hit, at most once per window, using the caller's clock.
type MemoryStore struct {
	entries sync.Map

	sweepMu   sync.Mutex
	nextSweep time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Hit increments the counter for key, starting a new window when the last one ended.
func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	s.sweep(window, now)

	entryI, _ := s.entries.LoadOrStore(key, &rateLimitEntry{
		count:   0,
		resetAt: now.Add(window),
	})
	entry := entryI.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// Reset if window expired
	if !now.Before(entry.resetAt) {
		entry.count = 0
		entry.resetAt = now.Add(window)
	}

	entry.count++

	return entry.count, entry.resetAt, nil
}

// sweep drops expired entries so idle clients do not pin memory
func (s *MemoryStore) sweep(window time.Duration, now time.Time) {
	s.sweepMu.Lock()
	if now.Before(s.nextSweep) {
		s.sweepMu.Unlock()
		return
	}
	s.nextSweep = now.Add(window)
	s.sweepMu.Unlock()

	s.entries.Range(func(key, value interface{}) bool {
		entry := value.(*rateLimitEntry)
		entry.mu.Lock()
		if !now.Before(entry.resetAt) {
			s.entries.Delete(key)
		}
		entry.mu.Unlock()
		return true
	})
}

// Lua script for atomic increment with TTL on first set
// KEYS[1] = counter key
// ARGV[1] = TTL in milliseconds
// Returns: [current_count, ttl_remaining_ms]
const rateLimitLuaScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`

var rateLimitScript = goredis.NewScript(rateLimitLuaScript)

// RedisStore keeps counters in Redis so every instance shares one limit.
type RedisStore struct {
	client *goredis.Client
}

// NewRedisStore wraps an already connected client.
func NewRedisStore(client *goredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Hit increments the counter for key atomically.
func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	result, err := rateLimitScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit eval failed: %w", err)
	}

	// Parse result [count, ttl]
	arr, ok := result.([]interface{})
	if !ok || len(arr) < 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected redis result format")
	}

	count, _ := arr[0].(int64)
	ttl, _ := arr[1].(int64)
	if ttl < 0 {
		ttl = window.Milliseconds()
	}

	return int(count), now.Add(time.Duration(ttl) * time.Millisecond), nil
}

// ContactRateLimitConfig is the limit applied to the contact form
func ContactRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Limit:      limit,
		Window:     window,
		KeyPrefix:  "rl:contact:",
		FailClosed: false, // Fail open: the in-memory store takes over
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// RateLimitMiddleware creates a rate limiting middleware with the given config.
// Uses Redis when configured and falls back to memory when it errors.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rl:ip:"
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	memory := NewMemoryStore()
	var shared RateLimitStore
	if config.Redis != nil {
		shared = NewRedisStore(config.Redis)
	}

	return func(c *gin.Context) {
		fullKey := config.KeyPrefix + config.KeyFunc(c)
		now := config.Now()

		var count int
		var resetAt time.Time
		var err error

		if shared != nil {
			count, resetAt, err = shared.Hit(c.Request.Context(), fullKey, config.Window, now)
			if err != nil {
				logRateLimitError(c, config.SecurityLogger, err)
				if config.FailClosed {
					response.Error(c, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.")
					c.Abort()
					return
				}
				count, resetAt, _ = memory.Hit(c.Request.Context(), fullKey, config.Window, now)
			}
		} else {
			count, resetAt, _ = memory.Hit(c.Request.Context(), fullKey, config.Window, now)
		}

		// Check if limit exceeded
		if count > config.Limit {
			retryAfter := int(resetAt.Sub(now).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}

			c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", resetAt.UTC().Format(time.RFC3339))
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			config.SecurityLogger.LogRateLimitTriggered(
				c.Request.Context(),
				c.ClientIP(),
				c.GetHeader("User-Agent"),
				response.RequestID(c),
				c.FullPath(),
			)
			config.Metrics.ObserveRateLimited(c.FullPath())

			response.Error(c, http.StatusTooManyRequests, RateLimitMessage)
			c.Abort()
			return
		}

		remaining := config.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", resetAt.UTC().Format(time.RFC3339))

		c.Next()
	}
}

// logRateLimitError logs Redis errors
func logRateLimitError(c *gin.Context, logger *security.SecurityLogger, err error) {
	logger.Log(c.Request.Context(), security.SecurityEvent{
		Event:       security.EventRateLimitStoreDown,
		SubjectType: "ip",
		IP:          c.ClientIP(),
		RequestID:   response.RequestID(c),
		Details: map[string]interface{}{
			"error": err.Error(),
		},
	})
}
