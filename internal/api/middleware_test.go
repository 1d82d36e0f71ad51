package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRateLimiter_EvictsIdleCallers(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	l := NewRateLimiter(60, 1, zap.NewNop())
	l.now = func() time.Time { return now }

	for _, key := range []string{"ip:10.0.0.1", "ip:10.0.0.2", "user-1"} {
		l.get(key)
	}
	assert.Equal(t, 3, l.size())

	// user-1 stays active, the two IPs go quiet.
	now = now.Add(limiterIdleTTL / 2)
	l.get("user-1")

	now = now.Add(limiterIdleTTL/2 + limiterSweepInterval)
	l.get("user-2")

	assert.Equal(t, 2, l.size(), "only user-1 and user-2 should keep a bucket")
}

func TestRateLimiter_ActiveCallerKeepsSpentBucket(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 1, zap.NewNop())
	l.now = func() time.Time { return now }

	assert.True(t, l.get("user-1").Allow())

	// A sweep must not hand an active caller a fresh bucket.
	now = now.Add(limiterSweepInterval)
	assert.False(t, l.get("user-1").Allow())
}

func TestRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewRateLimiter(1, 2, zap.NewNop())

	r := gin.New()
	r.POST("/write", l.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/write", nil)
		req.RemoteAddr = "192.0.2.7:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes[i] = w.Code
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_DisabledWhenNonPositive(t *testing.T) {
	l := NewRateLimiter(0, 0, zap.NewNop())
	for i := 0; i < 100; i++ {
		assert.True(t, l.get("user-1").Allow())
	}
}
