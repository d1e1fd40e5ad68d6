package rate

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func newTestLimiter() (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := NewMemory()
	limiter.now = clock.Now
	return limiter, clock
}

func TestMemoryLimiter_Window(t *testing.T) {
	limiter, clock := newTestLimiter()

	for i := 0; i < 3; i++ {
		ok, _ := limiter.Allow("ip:1", 3, time.Minute)
		assert.True(t, ok)
	}
	ok, retry := limiter.Allow("ip:1", 3, time.Minute)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retry)

	ok, _ = limiter.Allow("ip:2", 3, time.Minute)
	assert.True(t, ok, "keys are limited independently")

	clock.t = clock.t.Add(30 * time.Second)
	_, retry = limiter.Allow("ip:1", 3, time.Minute)
	assert.Equal(t, 30*time.Second, retry)

	clock.t = clock.t.Add(30 * time.Second)
	ok, _ = limiter.Allow("ip:1", 3, time.Minute)
	assert.True(t, ok, "window resets")
}

func TestMemoryLimiter_Prune(t *testing.T) {
	limiter, clock := newTestLimiter()
	limiter.Allow("stale", 1, time.Second)
	clock.t = clock.t.Add(time.Minute)

	for i := 0; i < pruneEvery; i++ {
		limiter.Allow("fresh", pruneEvery*2, time.Hour)
	}
	_, found := limiter.store["stale"]
	assert.False(t, found)
	assert.Len(t, limiter.store, 1)
}

func TestMiddleware(t *testing.T) {
	limiter, _ := newTestLimiter()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(limiter, 2, 15*time.Minute))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		last = httptest.NewRecorder()
		router.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	require.Equal(t, "900", last.Header().Get("Retry-After"))
	assert.Contains(t, last.Body.String(), "Too many requests")
}

func TestMiddleware_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(NewMemory(), 0, time.Minute))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
