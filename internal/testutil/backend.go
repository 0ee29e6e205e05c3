// Package testutil provides testing utilities for the item feed.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/item-feed/pkg/fetch"
	"github.com/Sternrassler/item-feed/pkg/item"
)

// PageCall records one call to Backend.Page.
type PageCall struct {
	Offset int
	Count  int
}

// Backend is a deterministic in-memory page and detail provider that
// records every call. Fields must be set before the backend is used.
type Backend struct {
	Items   []item.Item
	Details map[string]string

	// PageDelay and DetailDelay add latency to every call.
	PageDelay   time.Duration
	DetailDelay time.Duration

	// PageErrors fails the page starting at the given offset.
	PageErrors map[int]error

	// DetailErrors fails the detail lookup of the given id.
	DetailErrors map[string]error

	// OnPage is called at the start of every page call.
	OnPage func(offset, count int)

	mu          sync.Mutex
	pageCalls   []PageCall
	detailCalls []string
	pageGates   map[int]chan struct{}
	detailGate  chan struct{}
}

// NewBackend returns a backend with n items "item-000".."item-(n-1)", each
// with a detail.
func NewBackend(n int) *Backend {
	b := &Backend{
		Details:      make(map[string]string, n),
		PageErrors:   make(map[int]error),
		DetailErrors: make(map[string]error),
		pageGates:    make(map[int]chan struct{}),
	}
	for i := 0; i < n; i++ {
		id := ItemID(i)
		b.Items = append(b.Items, item.Item{ID: id, Title: fmt.Sprintf("Item %d", i)})
		b.Details[id] = fmt.Sprintf("Detail %d", i)
	}
	return b
}

// ItemID returns the id NewBackend assigns to index i.
func ItemID(i int) string {
	return fmt.Sprintf("item-%03d", i)
}

// HoldDetails makes detail calls block until the returned release function
// is called or their context ends.
func (b *Backend) HoldDetails() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.detailGate = gate
	b.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// HoldPage makes the page call at offset block until release or ctx end.
func (b *Backend) HoldPage(offset int) (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.pageGates[offset] = gate
	b.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Page implements fetch.PageProvider.
func (b *Backend) Page(ctx context.Context, offset, count int) ([]item.Item, error) {
	b.mu.Lock()
	b.pageCalls = append(b.pageCalls, PageCall{Offset: offset, Count: count})
	gate := b.pageGates[offset]
	b.mu.Unlock()

	if b.OnPage != nil {
		b.OnPage(offset, count)
	}
	if err := wait(ctx, gate, b.PageDelay); err != nil {
		return nil, err
	}
	if err := b.PageErrors[offset]; err != nil {
		return nil, err
	}

	if offset >= len(b.Items) {
		return []item.Item{}, nil
	}
	end := offset + count
	if end > len(b.Items) {
		end = len(b.Items)
	}
	page := make([]item.Item, end-offset)
	copy(page, b.Items[offset:end])
	return page, nil
}

// Detail implements fetch.DetailProvider.
func (b *Backend) Detail(ctx context.Context, id string) (string, error) {
	b.mu.Lock()
	b.detailCalls = append(b.detailCalls, id)
	gate := b.detailGate
	b.mu.Unlock()

	if err := wait(ctx, gate, b.DetailDelay); err != nil {
		return "", err
	}
	if err := b.DetailErrors[id]; err != nil {
		return "", err
	}
	detail, ok := b.Details[id]
	if !ok {
		return "", fetch.ErrDetailNotFound
	}
	return detail, nil
}

// PageCalls returns the page calls made so far.
func (b *Backend) PageCalls() []PageCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]PageCall(nil), b.pageCalls...)
}

// DetailCalls returns the ids looked up so far, in call order.
func (b *Backend) DetailCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.detailCalls...)
}

// CallCount returns the total number of provider calls.
func (b *Backend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pageCalls) + len(b.detailCalls)
}

func wait(ctx context.Context, gate chan struct{}, delay time.Duration) error {
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
