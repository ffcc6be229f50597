package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"doemais/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// bucketIdle is how long an unused client bucket is kept.
const bucketIdle = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientBuckets holds one token bucket per client IP.
type clientBuckets struct {
	mu        sync.Mutex
	every     rate.Limit
	burst     int
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newClientBuckets(perMin int) *clientBuckets {
	return &clientBuckets{
		every:   rate.Every(time.Minute / time.Duration(perMin)),
		burst:   perMin,
		buckets: make(map[string]*bucket),
	}
}

func (b *clientBuckets) get(ip string, now time.Time) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastSweep) > bucketIdle {
		for key, bk := range b.buckets {
			if now.Sub(bk.lastSeen) > bucketIdle {
				delete(b.buckets, key)
			}
		}
		b.lastSweep = now
	}

	bk, ok := b.buckets[ip]
	if !ok {
		bk = &bucket{limiter: rate.NewLimiter(b.every, b.burst)}
		b.buckets[ip] = bk
	}
	bk.lastSeen = now
	return bk.limiter
}

// RateLimitMiddleware allows perMin requests per minute per client IP.
func RateLimitMiddleware(perMin int) gin.HandlerFunc {
	if perMin <= 0 {
		perMin = 200
	}
	buckets := newClientBuckets(perMin)
	retryAfter := strconv.Itoa(int((time.Minute / time.Duration(perMin)).Seconds()) + 1)

	return func(c *gin.Context) {
		ip := ClientIP(c)
		if !buckets.get(ip, time.Now()).Allow() {
			utils.GetLogger().Warn("Rate limit exceeded", zap.String("ip", ip), zap.String("path", c.FullPath()))
			c.Header("Retry-After", retryAfter)
			utils.JSONError(c, http.StatusTooManyRequests, "Too many requests", "try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
