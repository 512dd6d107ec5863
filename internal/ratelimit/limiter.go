// Package ratelimit implements a fixed-window request limiter keyed by
// client IP, with a gin middleware that reports the standard RateLimit
// headers.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/valpere/codetran/internal/logging"
	"github.com/valpere/codetran/internal/metrics"
)

const (
	DefaultWindow = 15 * time.Minute
	DefaultMax    = 100

	// Message is returned with 429 once a client exhausts its window.
	Message = "Too many requests, please try again later."
)

type Config struct {
	Window time.Duration `mapstructure:"window" json:"window"`
	Max    int           `mapstructure:"max" json:"max"`
	// DBPath selects the SQLite store; empty keeps counters in memory.
	DBPath string `mapstructure:"db_path" json:"db_path"`
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type Limiter struct {
	store  Store
	window time.Duration
	max    int
	now    func() time.Time
}

// New returns a limiter over store. Zero values in cfg take the defaults.
func New(store Store, cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultMax
	}
	return &Limiter{
		store:  store,
		window: cfg.Window,
		max:    cfg.Max,
		now:    time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow counts one hit for key.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	w, err := l.store.Increment(ctx, key, l.now(), l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit store: %w", err)
	}
	remaining := l.max - w.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   w.Count <= l.max,
		Limit:     l.max,
		Remaining: remaining,
		ResetAt:   w.ResetAt,
	}, nil
}

// Middleware rejects clients over the limit with 429. A store failure lets
// the request through.
func (l *Limiter) Middleware() gin.HandlerFunc {
	policy := fmt.Sprintf("%d;w=%d", l.max, int(l.window.Seconds()))

	return func(c *gin.Context) {
		d, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logging.FromContext(c.Request.Context()).WithError(err).Warn("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		c.Header("RateLimit-Policy", policy)
		c.Header("RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(resetSeconds(d.ResetAt, l.now())))

		if !d.Allowed {
			metrics.RecordRateLimited()
			c.Header("Retry-After", strconv.Itoa(resetSeconds(d.ResetAt, l.now())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   Message,
			})
			return
		}
		c.Next()
	}
}

func resetSeconds(resetAt, now time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 0 {
		return 0
	}
	return secs
}
