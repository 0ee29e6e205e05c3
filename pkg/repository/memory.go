// Package repository provides page and detail providers backed by process
// memory or Redis.
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/item-feed/pkg/fetch"
	"github.com/Sternrassler/item-feed/pkg/item"
)

// Memory is an in-process repository. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	items   []item.Item
	details map[string]string

	// Latency is added to every lookup.
	Latency time.Duration
}

// NewMemory creates a repository holding items and their details. Items
// without an entry in details have no detail.
func NewMemory(items []item.Item, details map[string]string) *Memory {
	m := &Memory{
		items:   append([]item.Item(nil), items...),
		details: make(map[string]string, len(details)),
	}
	for id, d := range details {
		m.details[id] = d
	}
	return m
}

// Generate creates a repository with n items. Every missingEvery-th item has
// no detail; 0 gives every item a detail.
func Generate(n, missingEvery int) *Memory {
	items := make([]item.Item, n)
	details := make(map[string]string, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%04d", i)
		items[i] = item.Item{ID: id, Title: fmt.Sprintf("Item #%d", i)}
		if missingEvery > 0 && (i+1)%missingEvery == 0 {
			continue
		}
		details[id] = fmt.Sprintf("Detail for item #%d", i)
	}
	return NewMemory(items, details)
}

// Len returns the number of items.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Add appends items to the listing.
func (m *Memory) Add(items ...item.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, items...)
}

// SetDetail sets the detail of an item.
func (m *Memory) SetDetail(id, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.details[id] = detail
}

// Snapshot returns copies of the listing and the detail map.
func (m *Memory) Snapshot() ([]item.Item, map[string]string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	details := make(map[string]string, len(m.details))
	for id, d := range m.details {
		details[id] = d
	}
	return append([]item.Item(nil), m.items...), details
}

// Page implements fetch.PageProvider.
func (m *Memory) Page(ctx context.Context, offset, count int) ([]item.Item, error) {
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}
	if offset < 0 || count <= 0 {
		return nil, fmt.Errorf("invalid page request (offset %d, count %d)", offset, count)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if offset >= len(m.items) {
		return []item.Item{}, nil
	}
	end := min(offset+count, len(m.items))
	return append([]item.Item(nil), m.items[offset:end]...), nil
}

// Detail implements fetch.DetailProvider.
func (m *Memory) Detail(ctx context.Context, id string) (string, error) {
	if err := m.sleep(ctx); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	detail, ok := m.details[id]
	if !ok {
		return "", fmt.Errorf("item %s: %w", id, fetch.ErrDetailNotFound)
	}
	return detail, nil
}

func (m *Memory) sleep(ctx context.Context) error {
	if m.Latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(m.Latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
