package pipeline

import (
	"fmt"
	"time"

	"github.com/Sternrassler/item-feed/pkg/fetch"
	"github.com/Sternrassler/item-feed/pkg/pagination"
	"github.com/Sternrassler/item-feed/pkg/stream"
)

// Config holds the pipeline configuration.
type Config struct {
	// FirstPageSize is requested as soon as the pipeline starts.
	FirstPageSize int

	// PageSize is requested for every debounced trigger.
	PageSize int

	// DebounceWindow is the quiet period a trigger must be followed by
	// before it requests a page.
	DebounceWindow time.Duration

	// SubscriberBuffer is the per-subscriber event buffer.
	SubscriberBuffer int

	// IsolateDetailFailures drops a failed detail instead of failing the
	// whole stream.
	IsolateDetailFailures bool

	// StopOnShortPage stops fetching after a page shorter than requested.
	StopOnShortPage bool

	// Fetch configures the page and detail fetchers.
	Fetch fetch.Config
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		FirstPageSize:    20,
		PageSize:         10,
		DebounceWindow:   3 * time.Second,
		SubscriberBuffer: stream.DefaultBufferSize,
		Fetch:            fetch.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.FirstPageSize <= 0 {
		return fmt.Errorf("first_page_size must be > 0 (got %d)", c.FirstPageSize)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be > 0 (got %d)", c.PageSize)
	}
	if c.DebounceWindow < 0 {
		return fmt.Errorf("debounce_window must be >= 0 (got %s)", c.DebounceWindow)
	}
	return nil
}

func (c Config) paginationConfig() pagination.Config {
	return pagination.Config{StopOnShortPage: c.StopOnShortPage}
}
