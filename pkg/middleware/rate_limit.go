package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiterConfig struct {
	// Limit requests are allowed per Window for every client address
	Limit           int
	Window          time.Duration
	CleanupInterval time.Duration
	TTL             time.Duration
	Reject          RejectFunc
}

// RateLimiter keeps one token bucket per client address. A bucket holds
// Limit tokens and gets one back per Window, so no span of Window ever lets
// more than Limit requests through. Each limiter has its own visitors so
// the login and register throttles don't share budget with anything else.
type RateLimiter struct {
	cfg      RateLimiterConfig
	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Limit <= 0 {
		config.Limit = 5
	}
	if config.Window <= 0 {
		config.Window = 15 * time.Minute
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}
	if config.TTL == 0 {
		// Only a bucket left alone this long is back to full
		config.TTL = config.Window * time.Duration(config.Limit)
	}
	config.Reject = orJSON(config.Reject)

	return &RateLimiter{
		cfg:      config,
		visitors: make(map[string]*visitor),
	}
}

func (r *RateLimiter) getVisitor(ip string, now time.Time) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, exists := r.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rate.Every(r.cfg.Window), r.cfg.Limit)
		r.visitors[ip] = &visitor{limiter, now}
		return limiter
	}

	v.lastSeen = now
	return v.limiter
}

// Cleanup drops idle visitors until done is closed
func (r *RateLimiter) Cleanup(done <-chan struct{}) {
	t := time.NewTicker(r.cfg.CleanupInterval)
	defer t.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-t.C:
			r.mu.Lock()
			for ip, v := range r.visitors {
				if now.Sub(v.lastSeen) > r.cfg.TTL {
					delete(r.visitors, ip)
				}
			}
			r.mu.Unlock()
		}
	}
}

// Allow reports whether ip may make another request and, when it may not,
// how long until it can
func (r *RateLimiter) Allow(ip string) (bool, time.Duration) {
	now := time.Now()
	res := r.getVisitor(ip, now).ReserveN(now, 1)

	delay := res.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}

	// Don't spend the token, the request is refused
	res.CancelAt(now)
	return false, delay
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := r.Allow(c.ClientIP())
		if !ok {
			minutes := int(math.Ceil(wait.Minutes()))
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			r.cfg.Reject(c, http.StatusTooManyRequests,
				fmt.Sprintf("Too many attempts, please try again in %d minute(s)", minutes))
			return
		}

		c.Next()
	}
}
