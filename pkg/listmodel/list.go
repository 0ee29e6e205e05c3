// Package listmodel is a reference consumer of the pipeline: it keeps the
// rows of an incrementally loaded list and a loading indicator in sync with
// the update and raw trigger streams.
package listmodel

import (
	"context"
	"sync"

	"github.com/Sternrassler/item-feed/pkg/item"
	"github.com/Sternrassler/item-feed/pkg/pipeline"
)

// Row is one list entry. Detail is empty until resolved.
type Row struct {
	ID     string
	Title  string
	Detail string
}

// Change describes the effect of one applied update.
type Change struct {
	// Inserted is the half-open range [From, To) of appended rows.
	From, To int

	// Reloaded is the index of a row whose detail changed, or -1.
	Reloaded int
}

// Empty reports whether the update changed nothing.
func (c Change) Empty() bool {
	return c.From == c.To && c.Reloaded < 0
}

// List holds the rows rendered so far. It is safe for concurrent use.
type List struct {
	mu      sync.RWMutex
	rows    []Row
	index   map[string]int
	loading bool
}

// New returns an empty list.
func New() *List {
	return &List{index: make(map[string]int)}
}

// Apply applies one update. Any append clears the loading flag. Otherwise an
// empty append and a detail for an unknown id are no-ops.
func (l *List) Apply(u pipeline.Update) Change {
	l.mu.Lock()
	defer l.mu.Unlock()

	change := Change{From: len(l.rows), To: len(l.rows), Reloaded: -1}

	switch u.Kind {
	case pipeline.KindAppendItems:
		l.loading = false
		for _, it := range u.Items {
			l.append(it)
		}
		change.To = len(l.rows)
	case pipeline.KindUpdateDetail:
		i, ok := l.index[u.ItemID]
		if !ok {
			return change
		}
		l.rows[i].Detail = u.Detail
		change.Reloaded = i
	}
	return change
}

func (l *List) append(it item.Item) {
	l.index[it.ID] = len(l.rows)
	l.rows = append(l.rows, Row{ID: it.ID, Title: it.Title})
}

// Trigger marks the list as loading more rows.
func (l *List) Trigger() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = true
}

// Loading reports whether a trigger is waiting for its page.
func (l *List) Loading() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loading
}

// Len returns the number of rows.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rows)
}

// Rows returns a copy of the rows.
func (l *List) Rows() []Row {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Row(nil), l.rows...)
}

// Row returns the row at index i.
func (l *List) Row(i int) Row {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rows[i]
}

// Consume applies updates and raw triggers until the update channel closes
// or ctx ends. onChange, if not nil, is called after every update.
func (l *List) Consume(ctx context.Context, updates <-chan pipeline.Update, triggers <-chan struct{}, onChange func(pipeline.Update, Change)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-triggers:
			if !ok {
				triggers = nil
				continue
			}
			l.Trigger()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			change := l.Apply(u)
			if onChange != nil {
				onChange(u, change)
			}
		}
	}
}
