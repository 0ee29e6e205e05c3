// Package fetch wraps the page and detail lookups supplied by the hosting
// application.
//
// A provider call always runs on its own goroutine. The fetchers return as
// soon as the provider answers or the caller's context ends, so a provider
// that ignores cancellation never stalls the pipeline.
package fetch

import (
	"context"

	"github.com/Sternrassler/item-feed/pkg/item"
)

// PageProvider loads an ordered slice of items. It may return fewer than
// count items, or none, once the listing is exhausted.
type PageProvider interface {
	Page(ctx context.Context, offset, count int) ([]item.Item, error)
}

// DetailProvider resolves the detail text of one item. It returns
// ErrDetailNotFound (possibly wrapped) when no detail exists.
type DetailProvider interface {
	Detail(ctx context.Context, id string) (string, error)
}

// PageProviderFunc adapts a function to PageProvider.
type PageProviderFunc func(ctx context.Context, offset, count int) ([]item.Item, error)

// Page implements PageProvider.
func (f PageProviderFunc) Page(ctx context.Context, offset, count int) ([]item.Item, error) {
	return f(ctx, offset, count)
}

// DetailProviderFunc adapts a function to DetailProvider.
type DetailProviderFunc func(ctx context.Context, id string) (string, error)

// Detail implements DetailProvider.
func (f DetailProviderFunc) Detail(ctx context.Context, id string) (string, error) {
	return f(ctx, id)
}
