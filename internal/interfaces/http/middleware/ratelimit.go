package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/eta/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed window limiter keyed by client
type RateLimiter struct {
	mu          sync.Mutex
	clients     map[string]*window
	limit       int
	window      time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

type window struct {
	tokens    int
	startedAt time.Time
}

// NewRateLimiter allows limit requests per key in every window
func NewRateLimiter(limit int, w time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		window:  w,
		now:     time.Now,
	}
}

// Allow reports whether a request from key fits the current window
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.cleanup(now)

	c, ok := rl.clients[key]
	if !ok || now.Sub(c.startedAt) >= rl.window {
		rl.clients[key] = &window{tokens: rl.limit - 1, startedAt: now}
		return rl.limit > 0
	}
	if c.tokens > 0 {
		c.tokens--
		return true
	}
	return false
}

// Remaining returns the requests left for key in the current window
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[key]
	if !ok || rl.now().Sub(c.startedAt) >= rl.window {
		return rl.limit
	}
	return c.tokens
}

// cleanup drops expired windows at most once every two windows. Callers hold mu.
func (rl *RateLimiter) cleanup(now time.Time) {
	if now.Sub(rl.lastCleanup) < 2*rl.window {
		return
	}
	rl.lastCleanup = now
	for key, c := range rl.clients {
		if now.Sub(c.startedAt) > 2*rl.window {
			delete(rl.clients, key)
		}
	}
}

// RateLimit limits requests per client IP, and per tenant when one is resolved
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if tn, ok := GetTenant(c); ok {
			key = tn.SchemaName + ":" + key
		}

		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
			))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
		c.Next()
	}
}
