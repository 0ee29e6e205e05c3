// Package ratelimit gates requests sent to a page or detail provider.
// Detail fetches fan out without a concurrency bound, so the limiter is the
// only knob that shields a backend from a burst of lookups.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limiting.
var (
	rateLimitWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itemfeed_rate_limit_waits_total",
		Help: "Total number of requests delayed by the rate limiter",
	}, []string{"limiter"})

	rateLimitWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "itemfeed_rate_limit_wait_seconds",
		Help:    "Time requests spent waiting for the rate limiter",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"limiter"})
)

// throttleThreshold is the wait above which a request counts as throttled.
const throttleThreshold = time.Millisecond

// Config holds rate limiter configuration.
type Config struct {
	// RequestsPerSecond is the sustained request rate. Zero or less disables limiting.
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once (minimum 1).
	Burst int
}

// DefaultConfig returns an unlimited configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 0,
		Burst:             1,
	}
}

// Limiter gates requests with a token bucket.
type Limiter struct {
	name    string
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewLimiter creates a new limiter. The name labels its metrics.
func NewLimiter(name string, cfg Config, logger zerolog.Logger) *Limiter {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		name:    name,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Unlimited reports whether the limiter lets every request through.
func (l *Limiter) Unlimited() bool {
	return l.limiter.Limit() == rate.Inf
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.Unlimited() {
		return nil
	}

	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter %s: %w", l.name, err)
	}

	waited := time.Since(start)
	if waited > throttleThreshold {
		rateLimitWaitsTotal.WithLabelValues(l.name).Inc()
		rateLimitWaitSeconds.WithLabelValues(l.name).Observe(waited.Seconds())
		l.logger.Debug().
			Str("limiter", l.name).
			Dur("wait_duration", waited).
			Msg("Request throttled")
	}

	return nil
}
