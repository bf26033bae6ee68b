package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	maxLoginBuckets = 10000
	loginBucketTTL  = 10 * time.Minute
)

// LoginLimiter throttles login attempts per client IP with a token bucket.
type LoginLimiter struct {
	mu      sync.Mutex
	buckets map[string]*loginBucket
	rate    rate.Limit
	burst   int
}

type loginBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginLimiter allows perMinute attempts per IP with the given burst.
func NewLoginLimiter(perMinute, burst int) *LoginLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = perMinute
	}

	return &LoginLimiter{
		buckets: make(map[string]*loginBucket),
		rate:    rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
	}
}

// Middleware rejects clients exceeding the login rate with a 429.
func (l *LoginLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Message: "Too many login attempts, try again later",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Allow reports whether the given client may attempt a login right now.
func (l *LoginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[ip]
	if !ok {
		if len(l.buckets) >= maxLoginBuckets {
			l.prune(now)
		}
		b = &loginBucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now

	return b.limiter.Allow()
}

// prune drops buckets idle long enough to have fully refilled. Called with
// the mutex held.
func (l *LoginLimiter) prune(now time.Time) {
	for ip, b := range l.buckets {
		if now.Sub(b.lastSeen) > loginBucketTTL {
			delete(l.buckets, ip)
		}
	}
}
