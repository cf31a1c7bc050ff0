package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimit - per key request counter
type RateLimit struct {
	Count      int
	ResetAt    time.Time
	LastAccess time.Time
	Blocked    bool
	BlockUntil time.Time
}

// RateLimiter keeps fixed-window counters in memory.
type RateLimiter struct {
	store       map[string]*RateLimit
	mutex       sync.Mutex
	cleanupTime time.Duration
	now         func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// RateLimitConfig - limits for one class of endpoints
type RateLimitConfig struct {
	MaxRequests   int
	TimeWindow    time.Duration
	BlockDuration time.Duration
}

// NewRateLimiter creates a limiter and starts its cleanup loop. Stop ends
// the loop.
func NewRateLimiter(cleanupTime time.Duration) *RateLimiter {
	limiter := &RateLimiter{
		store:       make(map[string]*RateLimit),
		cleanupTime: cleanupTime,
		now:         time.Now,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

// Stop ends the cleanup loop and waits for it to exit. It is safe to call
// more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
	<-rl.done
}

// cleanup drops keys idle for a day.
func (rl *RateLimiter) cleanup() {
	defer close(rl.done)
	ticker := time.NewTicker(rl.cleanupTime)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	now := rl.now()
	for key, limit := range rl.store {
		if now.Sub(limit.LastAccess) > 24*time.Hour {
			delete(rl.store, key)
		}
	}
}

func (rl *RateLimiter) isAllowed(key string, config RateLimitConfig) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	limit, exists := rl.store[key]

	if !exists {
		rl.store[key] = &RateLimit{
			Count:      1,
			ResetAt:    now.Add(config.TimeWindow),
			LastAccess: now,
		}
		return true
	}

	if limit.Blocked {
		if now.After(limit.BlockUntil) {
			limit.Blocked = false
			limit.Count = 1
			limit.ResetAt = now.Add(config.TimeWindow)
			limit.LastAccess = now
			return true
		}
		return false
	}

	if now.After(limit.ResetAt) {
		limit.Count = 1
		limit.ResetAt = now.Add(config.TimeWindow)
		limit.LastAccess = now
		return true
	}

	if limit.Count >= config.MaxRequests {
		limit.Blocked = true
		limit.BlockUntil = now.Add(config.BlockDuration)
		limit.LastAccess = now
		return false
	}

	limit.Count++
	limit.LastAccess = now
	return true
}

func (rl *RateLimiter) limit(prefix, message string, config RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.isAllowed(prefix+c.ClientIP(), config) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": message})
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware - general limit per client IP
func (rl *RateLimiter) RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	return rl.limit("", "Request was throttled. Please try again later.", config)
}

// LoginRateLimitMiddleware guards register-or-login.
func (rl *RateLimiter) LoginRateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	return rl.limit("login:", "Too many login attempts. Please try again later.", config)
}

// PasswordResetRateLimitMiddleware guards the password reset endpoints.
func (rl *RateLimiter) PasswordResetRateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	return rl.limit("password-reset:", "Too many password reset attempts. Please try again later.", config)
}
