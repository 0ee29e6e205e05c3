package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Sternrassler/item-feed/pkg/item"
)

type fakeFetcher struct {
	mu       sync.Mutex
	total    int
	calls    []PageRequest
	inFlight int
	maxSeen  int
	failAt   int
}

func (f *fakeFetcher) Fetch(ctx context.Context, offset, count int) ([]item.Item, error) {
	f.mu.Lock()
	f.calls = append(f.calls, PageRequest{Offset: offset, Count: count})
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.failAt > 0 && offset == f.failAt {
		return nil, errors.New("backend down")
	}

	var items []item.Item
	for i := offset; i < offset+count && i < f.total; i++ {
		items = append(items, item.Item{ID: fmt.Sprintf("id-%d", i)})
	}
	return items, nil
}

func requestsOf(reqs ...PageRequest) <-chan PageRequest {
	ch := make(chan PageRequest, len(reqs))
	for _, r := range reqs {
		ch <- r
	}
	close(ch)
	return ch
}

func TestSequentialFetcher_Run(t *testing.T) {
	f := &fakeFetcher{total: 100}
	sf := NewSequentialFetcher(f, DefaultConfig())

	var results []PageResult
	err := sf.Run(context.Background(), requestsOf(PageRequest{0, 20}, PageRequest{20, 10}, PageRequest{30, 10}),
		func(ctx context.Context, res PageResult) error {
			results = append(results, res)
			return nil
		})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("Expected 3 pages, got %d", len(results))
	}
	if results[1].Items[0].ID != "id-20" {
		t.Errorf("Expected page 2 to start at id-20, got %s", results[1].Items[0].ID)
	}
	if f.maxSeen != 1 {
		t.Errorf("Expected at most one fetch in flight, saw %d", f.maxSeen)
	}
}

func TestSequentialFetcher_FetchError(t *testing.T) {
	f := &fakeFetcher{total: 100, failAt: 20}
	sf := NewSequentialFetcher(f, DefaultConfig())

	handled := 0
	err := sf.Run(context.Background(), requestsOf(PageRequest{0, 20}, PageRequest{20, 10}, PageRequest{30, 10}),
		func(ctx context.Context, res PageResult) error {
			handled++
			return nil
		})
	if err == nil {
		t.Fatal("Expected error")
	}
	if handled != 1 {
		t.Errorf("Expected 1 handled page, got %d", handled)
	}
	if len(f.calls) != 2 {
		t.Errorf("Expected no fetch after failure, got %d calls", len(f.calls))
	}
}

func TestSequentialFetcher_HandlerError(t *testing.T) {
	f := &fakeFetcher{total: 100}
	sf := NewSequentialFetcher(f, DefaultConfig())
	stop := errors.New("stop")

	err := sf.Run(context.Background(), requestsOf(PageRequest{0, 20}, PageRequest{20, 10}),
		func(ctx context.Context, res PageResult) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("Expected handler error, got %v", err)
	}
	if len(f.calls) != 1 {
		t.Errorf("Expected 1 fetch, got %d", len(f.calls))
	}
}

func TestSequentialFetcher_ShortPage(t *testing.T) {
	tests := []struct {
		name          string
		stop          bool
		expectedCalls int
	}{
		{name: "keeps_requesting", stop: false, expectedCalls: 3},
		{name: "stops_on_short_page", stop: true, expectedCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{total: 25}
			sf := NewSequentialFetcher(f, Config{StopOnShortPage: tt.stop})

			var results []PageResult
			err := sf.Run(context.Background(), requestsOf(PageRequest{0, 20}, PageRequest{20, 10}, PageRequest{30, 10}),
				func(ctx context.Context, res PageResult) error {
					results = append(results, res)
					return nil
				})
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if len(f.calls) != tt.expectedCalls {
				t.Errorf("Expected %d calls, got %d", tt.expectedCalls, len(f.calls))
			}

			// Every request resolves, fetched or not.
			if len(results) != 3 {
				t.Fatalf("Expected 3 handled results, got %d", len(results))
			}
			last := results[2]
			if last.Request != (PageRequest{30, 10}) || len(last.Items) != 0 {
				t.Errorf("Expected empty result for {30 10}, got %+v", last)
			}
		})
	}
}

func TestPageResult_Short(t *testing.T) {
	full := PageResult{Request: PageRequest{0, 2}, Items: make([]item.Item, 2)}
	short := PageResult{Request: PageRequest{0, 2}, Items: make([]item.Item, 1)}

	if full.Short() {
		t.Error("Full page reported as short")
	}
	if !short.Short() {
		t.Error("Short page not reported as short")
	}
}
