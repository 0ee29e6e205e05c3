package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/item-feed/pkg/item"
	"github.com/Sternrassler/item-feed/pkg/logging"
	"github.com/Sternrassler/item-feed/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// Config holds fetcher configuration.
type Config struct {
	// Timeout per provider call (0 = no timeout)
	Timeout time.Duration

	// RateLimit gates provider calls (zero value = unlimited)
	RateLimit ratelimit.Config
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:   15 * time.Second,
		RateLimit: ratelimit.DefaultConfig(),
	}
}

// PageResult is the outcome of an asynchronous page fetch.
type PageResult struct {
	Items []item.Item
	Err   error
}

// DetailResult is the outcome of an asynchronous detail fetch.
type DetailResult struct {
	Detail item.Detail
	Err    error
}

// PageFetcher wraps a PageProvider.
type PageFetcher struct {
	provider PageProvider
	config   Config
	limiter  *ratelimit.Limiter
	logger   zerolog.Logger
}

// NewPageFetcher creates a new page fetcher.
func NewPageFetcher(provider PageProvider, cfg Config) *PageFetcher {
	logger := logging.NewLogger("page-fetcher")
	return &PageFetcher{
		provider: provider,
		config:   cfg,
		limiter:  ratelimit.NewLimiter("page", cfg.RateLimit, logger),
		logger:   logger,
	}
}

// FetchAsync starts a page fetch and returns a channel that receives exactly
// one result.
func (f *PageFetcher) FetchAsync(ctx context.Context, offset, count int) <-chan PageResult {
	out := make(chan PageResult, 1)
	go func() {
		items, err := f.Fetch(ctx, offset, count)
		out <- PageResult{Items: items, Err: err}
	}()
	return out
}

// Fetch loads one page. It returns a *FetchError when the provider fails and
// the context error when ctx ends first.
func (f *PageFetcher) Fetch(ctx context.Context, offset, count int) ([]item.Item, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		PageFetches.WithLabelValues("cancelled").Inc()
		return nil, err
	}

	start := time.Now()
	callCtx, cancel := withTimeout(ctx, f.config.Timeout)
	defer cancel()

	type result struct {
		items []item.Item
		err   error
	}
	done := make(chan result, 1)
	if err := ctx.Err(); err != nil {
		PageFetches.WithLabelValues("cancelled").Inc()
		return nil, err
	}
	go func() {
		items, err := f.provider.Page(callCtx, offset, count)
		done <- result{items, err}
	}()

	select {
	case <-ctx.Done():
		PageFetches.WithLabelValues("cancelled").Inc()
		return nil, ctx.Err()
	case res := <-done:
		PageFetchDuration.Observe(time.Since(start).Seconds())
		if res.err != nil {
			if ctx.Err() != nil {
				PageFetches.WithLabelValues("cancelled").Inc()
				return nil, ctx.Err()
			}
			PageFetches.WithLabelValues("error").Inc()
			f.logger.Warn().
				Err(res.err).
				Int("offset", offset).
				Int("count", count).
				Msg("Page fetch failed")
			return nil, pageError(offset, count, res.err)
		}
		PageFetches.WithLabelValues("ok").Inc()
		return res.items, nil
	}
}

// DetailFetcher wraps a DetailProvider.
type DetailFetcher struct {
	provider DetailProvider
	config   Config
	limiter  *ratelimit.Limiter
	logger   zerolog.Logger
}

// NewDetailFetcher creates a new detail fetcher.
func NewDetailFetcher(provider DetailProvider, cfg Config) *DetailFetcher {
	logger := logging.NewLogger("detail-fetcher")
	return &DetailFetcher{
		provider: provider,
		config:   cfg,
		limiter:  ratelimit.NewLimiter("detail", cfg.RateLimit, logger),
		logger:   logger,
	}
}

// FetchAsync starts a detail fetch and returns a channel that receives
// exactly one result.
func (f *DetailFetcher) FetchAsync(ctx context.Context, id string) <-chan DetailResult {
	out := make(chan DetailResult, 1)
	go func() {
		detail, err := f.Fetch(ctx, id)
		out <- DetailResult{Detail: detail, Err: err}
	}()
	return out
}

// Fetch resolves the detail of one item. Every call reaches the provider.
func (f *DetailFetcher) Fetch(ctx context.Context, id string) (item.Detail, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		DetailFetches.WithLabelValues("cancelled").Inc()
		return item.Detail{}, err
	}

	DetailsInFlight.Inc()
	defer DetailsInFlight.Dec()

	start := time.Now()
	callCtx, cancel := withTimeout(ctx, f.config.Timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	if err := ctx.Err(); err != nil {
		DetailFetches.WithLabelValues("cancelled").Inc()
		return item.Detail{}, err
	}
	go func() {
		text, err := f.provider.Detail(callCtx, id)
		done <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		DetailFetches.WithLabelValues("cancelled").Inc()
		return item.Detail{}, ctx.Err()
	case res := <-done:
		DetailFetchDuration.Observe(time.Since(start).Seconds())
		if res.err != nil {
			if ctx.Err() != nil {
				DetailFetches.WithLabelValues("cancelled").Inc()
				return item.Detail{}, ctx.Err()
			}
			err := detailError(id, res.err)
			if errors.Is(res.err, ErrDetailNotFound) {
				DetailFetches.WithLabelValues("not_found").Inc()
			} else {
				DetailFetches.WithLabelValues("error").Inc()
			}
			f.logger.Warn().
				Err(res.err).
				Str("item_id", id).
				Str("error_kind", string(KindOf(err))).
				Msg("Detail fetch failed")
			return item.Detail{}, err
		}
		DetailFetches.WithLabelValues("ok").Inc()
		return item.Detail{ItemID: id, Text: res.text}, nil
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
