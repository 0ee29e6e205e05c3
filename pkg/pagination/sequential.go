package pagination

import (
	"context"
	"time"

	"github.com/Sternrassler/item-feed/pkg/item"
	"github.com/Sternrassler/item-feed/pkg/logging"
	"github.com/rs/zerolog"
)

// Config holds sequential fetcher configuration
type Config struct {
	// StopOnShortPage stops issuing fetches once a page comes back with
	// fewer items than requested. Later requests are consumed and dropped.
	StopOnShortPage bool
}

// DefaultConfig returns the default configuration: every request is fetched.
func DefaultConfig() Config {
	return Config{
		StopOnShortPage: false,
	}
}

// PageFetcher fetches a single page of items
type PageFetcher interface {
	Fetch(ctx context.Context, offset, count int) ([]item.Item, error)
}

// PageResult represents the result of fetching a single page
type PageResult struct {
	Request PageRequest
	Items   []item.Item
}

// Short reports whether the page held fewer items than requested.
func (r PageResult) Short() bool {
	return len(r.Items) < r.Request.Count
}

// HandlerFunc receives every fetched page, in request order.
type HandlerFunc func(ctx context.Context, result PageResult) error

// SequentialFetcher fetches pages one at a time
type SequentialFetcher struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewSequentialFetcher creates a new sequential fetcher
func NewSequentialFetcher(fetcher PageFetcher, config Config) *SequentialFetcher {
	return &SequentialFetcher{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger("pagination"),
	}
}

// Run fetches every request read from requests and passes each page to
// handle before the next fetch starts. Requests skipped after a short page
// reach handle as empty pages without a fetch. It returns nil once requests
// is closed, the first fetch or handler error otherwise.
func (sf *SequentialFetcher) Run(ctx context.Context, requests <-chan PageRequest, handle HandlerFunc) error {
	pagesFetched := 0
	exhausted := false

	for {
		var req PageRequest
		var ok bool

		select {
		case <-ctx.Done():
			sf.logger.Debug().
				Int("pages_fetched", pagesFetched).
				Msg("Sequential fetcher stopping (context cancelled)")
			return ctx.Err()
		case req, ok = <-requests:
		}

		if !ok {
			sf.logger.Debug().
				Int("pages_fetched", pagesFetched).
				Msg("Sequential fetcher completed")
			return nil
		}

		if exhausted {
			sf.logger.Debug().
				Int("offset", req.Offset).
				Int("count", req.Count).
				Msg("Skipping page request after short page")
			if err := handle(ctx, PageResult{Request: req, Items: []item.Item{}}); err != nil {
				return err
			}
			continue
		}

		start := time.Now()
		items, err := sf.fetcher.Fetch(ctx, req.Offset, req.Count)
		if err != nil {
			return err
		}
		pagesFetched++

		result := PageResult{Request: req, Items: items}
		sf.logger.Debug().
			Int("offset", req.Offset).
			Int("count", req.Count).
			Int("items", len(items)).
			Dur("duration", time.Since(start)).
			Msg("Page fetched")

		if err := handle(ctx, result); err != nil {
			return err
		}

		if sf.config.StopOnShortPage && result.Short() {
			exhausted = true
			sf.logger.Info().
				Int("offset", req.Offset).
				Int("items", len(items)).
				Msg("Short page received, listing exhausted")
		}
	}
}
