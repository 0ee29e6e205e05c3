package fetch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/item-feed/pkg/item"
)

func TestPageFetcher_Fetch(t *testing.T) {
	provider := PageProviderFunc(func(ctx context.Context, offset, count int) ([]item.Item, error) {
		if offset >= 100 {
			return nil, errors.New("backend down")
		}
		return []item.Item{{ID: "a", Title: "A"}}, nil
	})
	f := NewPageFetcher(provider, DefaultConfig())

	items, err := f.Fetch(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Errorf("Unexpected items: %+v", items)
	}

	_, err = f.Fetch(context.Background(), 100, 10)
	if KindOf(err) != KindPageFetchFailed {
		t.Fatalf("Expected page_fetch_failed, got %v", err)
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Offset != 100 || fe.Count != 10 {
		t.Errorf("Expected FetchError with offset/count, got %+v", fe)
	}
}

func TestPageFetcher_CancelWithUnresponsiveProvider(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	provider := PageProviderFunc(func(ctx context.Context, offset, count int) ([]item.Item, error) {
		<-release // ignores ctx
		return nil, nil
	})
	f := NewPageFetcher(provider, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	result := f.FetchAsync(ctx, 0, 10)
	cancel()

	select {
	case res := <-result:
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", res.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("Fetch did not return after cancellation")
	}
}

func TestPageFetcher_Timeout(t *testing.T) {
	provider := PageProviderFunc(func(ctx context.Context, offset, count int) ([]item.Item, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	f := NewPageFetcher(provider, Config{Timeout: 10 * time.Millisecond})

	_, err := f.Fetch(context.Background(), 0, 10)
	if KindOf(err) != KindPageFetchFailed {
		t.Fatalf("Expected page_fetch_failed, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded cause, got %v", err)
	}
}

func TestDetailFetcher_Fetch(t *testing.T) {
	provider := DetailProviderFunc(func(ctx context.Context, id string) (string, error) {
		switch id {
		case "known":
			return "detail for known", nil
		case "missing":
			return "", ErrDetailNotFound
		default:
			return "", errors.New("backend down")
		}
	})
	f := NewDetailFetcher(provider, DefaultConfig())

	tests := []struct {
		name         string
		id           string
		expectedKind ErrorKind
		expectedText string
	}{
		{name: "found", id: "known", expectedText: "detail for known"},
		{name: "not found", id: "missing", expectedKind: KindDetailNotFound},
		{name: "failure", id: "other", expectedKind: KindDetailFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := <-f.FetchAsync(context.Background(), tt.id)
			if tt.expectedKind != "" {
				if KindOf(res.Err) != tt.expectedKind {
					t.Errorf("Expected kind %q, got %v", tt.expectedKind, res.Err)
				}
				return
			}
			if res.Err != nil {
				t.Fatalf("Unexpected error: %v", res.Err)
			}
			if res.Detail.ItemID != tt.id || res.Detail.Text != tt.expectedText {
				t.Errorf("Unexpected detail: %+v", res.Detail)
			}
		})
	}
}

func TestDetailFetcher_NoCaching(t *testing.T) {
	calls := 0
	provider := DetailProviderFunc(func(ctx context.Context, id string) (string, error) {
		calls++
		return "d", nil
	})
	f := NewDetailFetcher(provider, DefaultConfig())

	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(context.Background(), "same"); err != nil {
			t.Fatalf("Fetch returned error: %v", err)
		}
	}
	if calls != 3 {
		t.Errorf("Expected 3 provider calls, got %d", calls)
	}
}

func TestFetchers_CancelledContextSkipsProvider(t *testing.T) {
	var pageCalls, detailCalls atomic.Int32
	pages := NewPageFetcher(PageProviderFunc(func(ctx context.Context, offset, count int) ([]item.Item, error) {
		pageCalls.Add(1)
		return nil, nil
	}), Config{})
	details := NewDetailFetcher(DetailProviderFunc(func(ctx context.Context, id string) (string, error) {
		detailCalls.Add(1)
		return "x", nil
	}), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := pages.Fetch(ctx, 0, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled from page fetch, got %v", err)
	}
	if _, err := details.Fetch(ctx, "a"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled from detail fetch, got %v", err)
	}

	// Give a stray provider goroutine time to show up.
	time.Sleep(20 * time.Millisecond)
	if n := pageCalls.Load(); n != 0 {
		t.Errorf("Page provider called %d times after cancel", n)
	}
	if n := detailCalls.Load(); n != 0 {
		t.Errorf("Detail provider called %d times after cancel", n)
	}
}
