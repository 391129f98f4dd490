package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	bucketSweepEvery = 5 * time.Minute
	bucketStaleAfter = 10 * time.Minute
)

// clientBuckets holds one token bucket per client IP. Buckets idle longer
// than bucketStaleAfter are dropped by a background sweep.
type clientBuckets struct {
	mu     sync.Mutex
	byIP   map[string]*clientBucket
	perSec rate.Limit
	burst  int
}

type clientBucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

func newClientBuckets(rps, burst int) *clientBuckets {
	cb := &clientBuckets{
		byIP:   make(map[string]*clientBucket),
		perSec: rate.Limit(rps),
		burst:  burst,
	}
	go cb.sweep()
	return cb
}

func (cb *clientBuckets) allow(ip string) bool {
	cb.mu.Lock()
	b, ok := cb.byIP[ip]
	if !ok {
		b = &clientBucket{tokens: rate.NewLimiter(cb.perSec, cb.burst)}
		cb.byIP[ip] = b
	}
	b.lastSeen = time.Now()
	cb.mu.Unlock()

	return b.tokens.Allow()
}

func (cb *clientBuckets) sweep() {
	for range time.Tick(bucketSweepEvery) {
		cb.mu.Lock()
		for ip, b := range cb.byIP {
			if time.Since(b.lastSeen) > bucketStaleAfter {
				delete(cb.byIP, ip)
			}
		}
		cb.mu.Unlock()
	}
}

// RateLimiter returns a Gin middleware enforcing a per-client-IP token
// bucket: rps steady-state requests per second with the given burst
// allowance. Exhausted clients get 429 with a Retry-After hint.
func RateLimiter(rps, burst int) gin.HandlerFunc {
	buckets := newClientBuckets(rps, burst)

	return func(c *gin.Context) {
		if !buckets.allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
