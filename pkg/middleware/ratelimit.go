package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	uberratelimit "go.uber.org/ratelimit"

	"github.com/strata-dev/strata/pkg/server"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Limit is the maximum number of requests per window.
	Limit int

	// Remaining is the number of requests left in the current window.
	Remaining int

	// Reset is the time until the current window resets.
	Reset time.Duration
}

// RateLimiter decides whether a request identified by key may proceed.
// Implementations must be safe for concurrent use.
type RateLimiter interface {
	Allow(key string) Result
}

// windowBucket tracks request counts for one key in the current window.
type windowBucket struct {
	start time.Time
	count int
}

// windowLimiter is a fixed-window in-memory rate limiter. Buckets for
// keys that have gone quiet are swept lazily on the next Allow call, so
// memory stays proportional to the set of recently active keys.
type windowLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*windowBucket
	limit     int
	window    time.Duration
	lastSweep time.Time
}

// NewWindowLimiter returns an in-memory RateLimiter allowing limit
// requests per key in each fixed window.
func NewWindowLimiter(limit int, window time.Duration) RateLimiter {
	return &windowLimiter{
		buckets:   make(map[string]*windowBucket),
		limit:     limit,
		window:    window,
		lastSweep: time.Now(),
	}
}

func (l *windowLimiter) Allow(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.sweepLocked(now)

	b := l.buckets[key]
	if b == nil || now.Sub(b.start) >= l.window {
		b = &windowBucket{start: now}
		l.buckets[key] = b
	}
	b.count++

	remaining := l.limit - b.count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   b.count <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		Reset:     b.start.Add(l.window).Sub(now),
	}
}

// sweepLocked drops buckets whose window has expired. Runs at most once
// per window so a busy limiter does not rescan the map on every request.
func (l *windowLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.start) >= l.window {
			delete(l.buckets, key)
		}
	}
}

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	// KeyFunc extracts the limiting key from the request.
	// Default: the client IP.
	KeyFunc func(ctx *server.Context) string

	// Limiter is the rate limiter to consult.
	// Default: an in-memory fixed-window limiter.
	Limiter RateLimiter
}

// RateLimitOption configures the rate limit middleware.
type RateLimitOption func(*RateLimitConfig)

// WithKeyFunc sets the function that extracts the limiting key.
func WithKeyFunc(keyFunc func(ctx *server.Context) string) RateLimitOption {
	return func(c *RateLimitConfig) {
		c.KeyFunc = keyFunc
	}
}

// WithLimiter sets the rate limiter, replacing the in-memory default.
// Use this to plug in a shared store when running multiple instances.
func WithLimiter(limiter RateLimiter) RateLimitOption {
	return func(c *RateLimitConfig) {
		c.Limiter = limiter
	}
}

// RateLimit creates middleware that limits each client to limit requests
// per window. Over-limit requests receive 429 with a Retry-After header.
//
// Every response carries X-RateLimit-Limit, X-RateLimit-Remaining, and
// X-RateLimit-Reset headers so clients can pace themselves before
// hitting the limit.
//
// By default clients are keyed by IP, honoring X-Forwarded-For only from
// trusted proxies. Key by API token instead with WithKeyFunc:
//
//	app.Use(middleware.RateLimit(100, time.Minute,
//	    middleware.WithKeyFunc(func(ctx *strata.Context) string {
//	        return ctx.Header("Authorization")
//	    }),
//	))
func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) server.Middleware {
	config := RateLimitConfig{}
	for _, opt := range opts {
		opt(&config)
	}
	if config.KeyFunc == nil {
		config.KeyFunc = func(ctx *server.Context) string { return ctx.ClientIP() }
	}
	if config.Limiter == nil {
		config.Limiter = NewWindowLimiter(limit, window)
	}

	return server.MiddlewareFunc(func(ctx *server.Context, next func() error) error {
		res := config.Limiter.Allow(config.KeyFunc(ctx))

		ctx.SetHeader("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		ctx.SetHeader("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		ctx.SetHeader("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.Reset).Unix(), 10))

		if !res.Allowed {
			retryAfter := int(math.Ceil(res.Reset.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			ctx.SetHeader("Retry-After", strconv.Itoa(retryAfter))
			return server.ErrTooManyRequests("rate limit exceeded")
		}

		return next()
	})
}

// Pace creates middleware that smooths request throughput to at most rps
// requests per second, blocking each request until its slot comes up.
// Unlike RateLimit it never rejects; use it to protect a downstream that
// degrades under bursts.
func Pace(rps int) server.Middleware {
	limiter := uberratelimit.New(rps)

	return server.MiddlewareFunc(func(ctx *server.Context, next func() error) error {
		limiter.Take()
		return next()
	})
}
