package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(c *gin.Context) string

// ByIP charges requests to the client IP.
func ByIP(c *gin.Context) string { return c.ClientIP() }

// ByPlayer charges authenticated requests to the player and the rest to the
// client IP.
func ByPlayer(c *gin.Context) string {
	if id := GetPlayerID(c); id != 0 {
		return "p:" + strconv.FormatInt(id, 10)
	}
	return c.ClientIP()
}

// RateLimit provides per-key token-bucket rate limiting.
// r = requests per second, b = burst size.
func RateLimit(r rate.Limit, b int, key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = ByIP
	}
	limiters := &sync.Map{}

	// Drop buckets idle for ten minutes.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-10 * time.Minute).UnixNano()
			limiters.Range(func(k, v interface{}) bool {
				if v.(*limiterEntry).lastSeen.Load() < cutoff {
					limiters.Delete(k)
				}
				return true
			})
		}
	}()

	get := func(k string) *rate.Limiter {
		v, ok := limiters.Load(k)
		if !ok {
			v, _ = limiters.LoadOrStore(k, &limiterEntry{limiter: rate.NewLimiter(r, b)})
		}
		e := v.(*limiterEntry)
		e.lastSeen.Store(time.Now().UnixNano())
		return e.limiter
	}

	return func(c *gin.Context) {
		if !get(key(c)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "code": "rate_limited"})
			return
		}
		c.Next()
	}
}
