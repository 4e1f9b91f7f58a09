package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go-contact-backend/internal/delivery/http/middleware"
	"go-contact-backend/internal/delivery/http/response"
	"go-contact-backend/pkg/apperror"
	"go-contact-backend/pkg/security"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func TestMemoryStore(t *testing.T) {
	store := middleware.NewMemoryStore()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	window := 15 * time.Minute

	count, resetAt, err := store.Hit(context.Background(), "k", window, start)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, start.Add(window), resetAt)

	count, _, _ = store.Hit(context.Background(), "k", window, start.Add(time.Minute))
	assert.Equal(t, 2, count)

	count, _, _ = store.Hit(context.Background(), "other", window, start.Add(time.Minute))
	assert.Equal(t, 1, count, "keys are counted separately")

	count, resetAt, _ = store.Hit(context.Background(), "k", window, start.Add(window))
	assert.Equal(t, 1, count, "a new window starts once the old one ends")
	assert.Equal(t, start.Add(2*window), resetAt)
}

func TestMemoryStoreSweep(t *testing.T) {
	store := middleware.NewMemoryStore()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	window := 15 * time.Minute

	_, _, _ = store.Hit(context.Background(), "a", window, start)
	_, _, _ = store.Hit(context.Background(), "b", window, start.Add(time.Minute))
	assert.Equal(t, 2, store.Len())

	_, _, _ = store.Hit(context.Background(), "c", window, start.Add(window+2*time.Minute))
	assert.Equal(t, 1, store.Len(), "expired keys are dropped by the caller's clock")
}

// scriptHook answers the rate limit script in-process, so the client never dials.
type scriptHook struct {
	mu     sync.Mutex
	counts map[string]int64
	ttl    int64
}

func newScriptHook(ttl int64) *scriptHook {
	return &scriptHook{counts: map[string]int64{}, ttl: ttl}
}

func (h *scriptHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return next
}

func (h *scriptHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return next
}

func (h *scriptHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		script, ok := cmd.(*goredis.Cmd)
		if !ok || (cmd.Name() != "evalsha" && cmd.Name() != "eval") {
			return next(ctx, cmd)
		}
		// evalsha <sha> <numkeys> <key> <ttl ms>
		key := fmt.Sprint(cmd.Args()[3])

		h.mu.Lock()
		h.counts[key]++
		count := h.counts[key]
		h.mu.Unlock()

		script.SetVal([]interface{}{count, h.ttl})
		return nil
	}
}

func (h *scriptHook) count(key string) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[key]
}

func newHookedClient(t *testing.T, hook goredis.Hook) *goredis.Client {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	client.AddHook(hook)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	window := 15 * time.Minute

	t.Run("Should count through the script", func(t *testing.T) {
		hook := newScriptHook(60_000)
		store := middleware.NewRedisStore(newHookedClient(t, hook))

		count, resetAt, err := store.Hit(context.Background(), "rl:contact:192.0.2.1", window, now)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, now.Add(time.Minute), resetAt)

		count, _, _ = store.Hit(context.Background(), "rl:contact:192.0.2.1", window, now)
		assert.Equal(t, 2, count)
	})

	t.Run("Should fall back to the full window when the key has no TTL", func(t *testing.T) {
		store := middleware.NewRedisStore(newHookedClient(t, newScriptHook(-1)))

		count, resetAt, err := store.Hit(context.Background(), "rl:contact:192.0.2.1", window, now)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, now.Add(window), resetAt)
	})

	t.Run("Should report an unreachable server", func(t *testing.T) {
		client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: time.Second})
		t.Cleanup(func() { _ = client.Close() })

		_, _, err := middleware.NewRedisStore(client).Hit(context.Background(), "k", window, now)
		assert.Error(t, err)
	})
}

func TestRateLimitMiddlewareRedis(t *testing.T) {
	newRouter := func(cfg middleware.RateLimitConfig) *gin.Engine {
		r := gin.New()
		r.POST("/api/contact", middleware.RateLimitMiddleware(cfg), response.OK)
		return r
	}
	send := func(r *gin.Engine) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		return serve(r, req)
	}

	t.Run("Should share one limit between instances", func(t *testing.T) {
		hook := newScriptHook(15 * 60 * 1000)
		client := newHookedClient(t, hook)

		cfg := middleware.ContactRateLimitConfig(20, 15*time.Minute)
		cfg.Redis = client
		first, second := newRouter(cfg), newRouter(cfg)

		for i := 1; i <= 10; i++ {
			require.Equal(t, http.StatusOK, send(first).Code, "first instance request %d", i)
			require.Equal(t, http.StatusOK, send(second).Code, "second instance request %d", i)
		}

		assert.Equal(t, http.StatusTooManyRequests, send(first).Code)
		assert.Equal(t, int64(21), hook.count("rl:contact:192.0.2.1"))
	})

	t.Run("Should fall back to memory when Redis is down", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: time.Second})
		t.Cleanup(func() { _ = client.Close() })

		cfg := middleware.ContactRateLimitConfig(20, 15*time.Minute)
		cfg.Redis = client
		cfg.SecurityLogger = security.NewSecurityLogger(zap.New(core), "contact-backend", "test")
		r := newRouter(cfg)

		codes := map[int]int{}
		for i := 0; i < 21; i++ {
			codes[send(r).Code]++
		}

		assert.Equal(t, map[int]int{http.StatusOK: 20, http.StatusTooManyRequests: 1}, codes)
		assert.Equal(t, 21, logs.FilterMessage(string(security.EventRateLimitStoreDown)).Len())
	})

	t.Run("Should refuse requests when configured to fail closed", func(t *testing.T) {
		client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: time.Second})
		t.Cleanup(func() { _ = client.Close() })

		cfg := middleware.ContactRateLimitConfig(20, 15*time.Minute)
		cfg.Redis = client
		cfg.FailClosed = true

		assert.Equal(t, http.StatusServiceUnavailable, send(newRouter(cfg)).Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	cfg := middleware.ContactRateLimitConfig(20, 15*time.Minute)
	cfg.Now = clock.Now

	handled := 0
	r := gin.New()
	r.POST("/api/contact", middleware.RateLimitMiddleware(cfg), func(c *gin.Context) {
		handled++
		response.OK(c)
	})

	send := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		req.RemoteAddr = remoteAddr
		return serve(r, req)
	}

	for i := 1; i <= 20; i++ {
		w := send("192.0.2.1:1234")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}

	w := send("192.0.2.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"Too many requests, please try again later."}`, w.Body.String())
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, 20, handled)

	t.Run("Should count other clients separately", func(t *testing.T) {
		w := send("198.51.100.7:4321")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "19", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("Should admit the client again after the window", func(t *testing.T) {
		clock.now = clock.now.Add(15 * time.Minute)
		w := send("192.0.2.1:1234")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORSMiddleware("https://acme.test", nil))
	r.GET("/health", response.OK)

	t.Run("Should answer an allowed preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
		req.Header.Set("Origin", "https://acme.test")
		req.Header.Set("Access-Control-Request-Method", "POST")

		w := serve(r, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://acme.test", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("Should refuse a foreign preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
		req.Header.Set("Origin", "https://evil.test")

		w := serve(r, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Should pass requests without an origin", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("Should allow any origin with a wildcard", func(t *testing.T) {
		r := gin.New()
		r.Use(middleware.CORSMiddleware("*", nil))
		r.GET("/health", response.OK)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://anything.test")
		w := serve(r, req)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middleware.SecurityHeadersMiddleware())
	r.GET("/health", response.OK)
	r.GET("/swagger/index.html", response.OK)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=")
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'self'")

	w = serve(r, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Empty(t, w.Header().Get("Content-Security-Policy"))
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(middleware.BodyLimit(16))
	r.POST("/echo", func(c *gin.Context) {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				response.Error(c, http.StatusRequestEntityTooLarge, "Payload too large")
				return
			}
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		c.String(http.StatusOK, string(data))
	})

	t.Run("Should pass a small body", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("small")))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "small", w.Body.String())
	})

	t.Run("Should reject a declared oversized body", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 17))))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.JSONEq(t, `{"error":"Payload too large"}`, w.Body.String())
	})

	t.Run("Should cut an undeclared oversized body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 64)))
		req.ContentLength = -1
		w := serve(r, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/bad", func(c *gin.Context) {
		_ = c.Error(apperror.BadRequest("Invalid email", nil))
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("dial tcp 10.0.0.1:587: connection refused"))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/bad", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid email"}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Server error"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "10.0.0.1")
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("unexpected") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Server error"}`, w.Body.String())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/id", func(c *gin.Context) { c.String(http.StatusOK, response.RequestID(c)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/id", nil))
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set("X-Request-ID", "edge-42")
	w = serve(r, req)
	assert.Equal(t, "edge-42", w.Body.String())
}
