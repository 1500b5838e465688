package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-showcase/internal/config"
	"github.com/iliyamo/event-showcase/internal/store"
)

func newContext(e *echo.Echo, method, target string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestBearerToken(t *testing.T) {
	e := echo.New()
	cases := map[string]string{
		"":             "",
		"Basic abc":    "",
		"Bearer":       "",
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"BEARER x.y.z": "x.y.z",
	}
	for header, want := range cases {
		c, _ := newContext(e, http.MethodGet, "/")
		if header != "" {
			c.Request().Header.Set("Authorization", header)
		}
		assert.Equal(t, want, BearerToken(c), header)
	}
}

func TestUserIDDefaultsToGuest(t *testing.T) {
	e := echo.New()
	c, _ := newContext(e, http.MethodGet, "/")
	assert.Equal(t, "guest", userID(c))
	c.Set(ContextUser, "admin")
	assert.Equal(t, "admin", userID(c))
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	c, _ := newContext(e, http.MethodPost, "/v1/events/ev_1/likes")
	c.SetPath("/v1/events/:id/likes")
	c.Request().RemoteAddr = "203.0.113.7:5555"

	cfg := config.RateLimitConfig{Prefix: "p:rl"}
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "p:rl:ip:203.0.113.7", buildRateKey(cfg, c))
	cfg.KeyStrategy = "route"
	assert.Equal(t, "p:rl:route:POST /v1/events/:id/likes", buildRateKey(cfg, c))
	cfg.KeyStrategy = "ip_user_route"
	assert.Equal(t, "p:rl:ip:203.0.113.7:user:guest:route:POST /v1/events/:id/likes", buildRateKey(cfg, c))
	cfg.KeyStrategy = ""
	assert.Equal(t, "p:rl:ip:203.0.113.7:route:POST /v1/events/:id/likes", buildRateKey(cfg, c))
}

func TestTokenBucketLocalFallback(t *testing.T) {
	e := echo.New()
	mw := NewTokenBucket(config.RateLimitConfig{
		Enabled:        true,
		Capacity:       3,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "t:rl",
	}, nil, nil)
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	call := func(ip string) *httptest.ResponseRecorder {
		c, rec := newContext(e, http.MethodPost, "/")
		c.Request().RemoteAddr = ip + ":1000"
		require.NoError(t, h(c))
		return rec
	}
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, call("198.51.100.1").Code)
	}
	blocked := call("198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "3", blocked.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	// Buckets are per key.
	assert.Equal(t, http.StatusNoContent, call("198.51.100.2").Code)
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: false, Capacity: 1}, nil, nil)
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	for i := 0; i < 5; i++ {
		c, rec := newContext(e, http.MethodPost, "/")
		require.NoError(t, h(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestResponseCacheWithoutRedisIsNoop(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil, nil)
	require.NoError(t, rc.Purge(context.Background()))

	e := echo.New()
	calls := 0
	h := rc.Middleware()(func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "fresh")
	})
	for i := 0; i < 2; i++ {
		c, rec := newContext(e, http.MethodGet, "/v1/company")
		require.NoError(t, h(c))
		assert.Equal(t, "fresh", rec.Body.String())
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, calls)
}

func TestCachePurgesOnContentChangesOnly(t *testing.T) {
	assert.True(t, purgesOn(store.Change{}))
	assert.True(t, purgesOn(store.Change{Remote: true}))
	assert.False(t, purgesOn(store.Change{CountersOnly: true}))

	// Without redis the observer has nothing to purge and returns.
	rc := NewResponseCache(config.CacheConfig{Enabled: true}, nil, nil)
	rc.Observe(store.Change{})
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/v1/company", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/v1/company", nil)
	e.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request", line["msg"])
	assert.Equal(t, "/v1/company", line["uri"])
	assert.Equal(t, float64(http.StatusOK), line["status"])
	assert.Equal(t, "guest", line["user"])
}
