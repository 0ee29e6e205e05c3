package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/Sternrassler/item-feed/pkg/fetch"
	"github.com/Sternrassler/item-feed/pkg/item"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis starts an in-memory Redis server.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
	})

	return client, mr
}

func seedItems(t *testing.T, repo *Redis, n int) {
	t.Helper()

	src := Generate(n, 4)
	items, err := src.Page(context.Background(), 0, n)
	if err != nil {
		t.Fatalf("Generate page: %v", err)
	}
	details := make(map[string]string)
	for _, it := range items {
		if d, err := src.Detail(context.Background(), it.ID); err == nil {
			details[it.ID] = d
		}
	}
	if err := repo.Seed(context.Background(), items, details); err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}
}

func TestNewRedis_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedis should panic with nil redis client")
		}
	}()
	NewRedis(nil, "")
}

func TestRedis_Page(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewRedis(client, "test")
	seedItems(t, repo, 25)
	ctx := context.Background()

	n, err := repo.Len(ctx)
	if err != nil || n != 25 {
		t.Fatalf("Len() = %d, %v; want 25", n, err)
	}

	tests := []struct {
		name          string
		offset, count int
		expectedLen   int
		expectedFirst string
	}{
		{name: "first page", offset: 0, count: 20, expectedLen: 20, expectedFirst: "0000"},
		{name: "short page", offset: 20, count: 10, expectedLen: 5, expectedFirst: "0020"},
		{name: "past end", offset: 30, count: 10, expectedLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := repo.Page(ctx, tt.offset, tt.count)
			if err != nil {
				t.Fatalf("Page returned error: %v", err)
			}
			if len(items) != tt.expectedLen {
				t.Fatalf("Expected %d items, got %d", tt.expectedLen, len(items))
			}
			if tt.expectedLen > 0 && items[0].ID != tt.expectedFirst {
				t.Errorf("Expected first id %s, got %s", tt.expectedFirst, items[0].ID)
			}
		})
	}
}

func TestRedis_Detail(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewRedis(client, "")
	seedItems(t, repo, 8)
	ctx := context.Background()

	detail, err := repo.Detail(ctx, "0001")
	if err != nil {
		t.Fatalf("Detail returned error: %v", err)
	}
	if detail != "Detail for item #1" {
		t.Errorf("Unexpected detail: %q", detail)
	}

	if _, err := repo.Detail(ctx, "0003"); !errors.Is(err, fetch.ErrDetailNotFound) {
		t.Errorf("Expected ErrDetailNotFound, got %v", err)
	}
}

func TestRedis_InvalidEntry(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewRedis(client, "bad")

	if _, err := mr.Push("bad:items", "{not json"); err != nil {
		t.Fatalf("Push: %v", err)
	}

	if _, err := repo.Page(context.Background(), 0, 1); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}
}

func TestRedis_ConnectionError(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewRedis(client, "")
	mr.Close()

	_, err := repo.Detail(context.Background(), "x")
	if err == nil || errors.Is(err, fetch.ErrDetailNotFound) {
		t.Errorf("Expected connection error, got %v", err)
	}
}

func TestRedis_Clear(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewRedis(client, "")
	ctx := context.Background()

	if err := repo.Seed(ctx, []item.Item{{ID: "a"}}, map[string]string{"a": "x"}); err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if n, _ := repo.Len(ctx); n != 0 {
		t.Errorf("Expected empty listing, got %d", n)
	}
}
