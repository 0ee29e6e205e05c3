package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sternrassler/item-feed/pkg/fetch"
	"github.com/Sternrassler/item-feed/pkg/item"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces the repository keys.
const DefaultKeyPrefix = "itemfeed"

// ErrInvalidEntry indicates a stored item could not be decoded.
var ErrInvalidEntry = errors.New("invalid item entry")

// Redis stores the listing as a Redis list of JSON items and the details in
// a hash keyed by item id.
type Redis struct {
	redis  *redis.Client
	prefix string
}

// NewRedis creates a Redis repository. An empty prefix uses DefaultKeyPrefix.
func NewRedis(redisClient *redis.Client, prefix string) *Redis {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (r *Redis) itemsKey() string {
	return r.prefix + ":items"
}

func (r *Redis) detailsKey() string {
	return r.prefix + ":details"
}

// Seed appends items to the listing and stores their details in one
// transaction.
func (r *Redis) Seed(ctx context.Context, items []item.Item, details map[string]string) error {
	pipe := r.redis.TxPipeline()

	for _, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("marshal item %s: %w", it.ID, err)
		}
		pipe.RPush(ctx, r.itemsKey(), data)
	}
	if len(details) > 0 {
		pipe.HSet(ctx, r.detailsKey(), details)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("seed redis: %w", err)
	}
	return nil
}

// Clear removes the listing and all details.
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.redis.Del(ctx, r.itemsKey(), r.detailsKey()).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Len returns the number of stored items.
func (r *Redis) Len(ctx context.Context) (int, error) {
	n, err := r.redis.LLen(ctx, r.itemsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen: %w", err)
	}
	return int(n), nil
}

// Page implements fetch.PageProvider.
func (r *Redis) Page(ctx context.Context, offset, count int) ([]item.Item, error) {
	if offset < 0 || count <= 0 {
		return nil, fmt.Errorf("invalid page request (offset %d, count %d)", offset, count)
	}

	raw, err := r.redis.LRange(ctx, r.itemsKey(), int64(offset), int64(offset+count-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	items := make([]item.Item, 0, len(raw))
	for _, entry := range raw {
		var it item.Item
		if err := json.Unmarshal([]byte(entry), &it); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// Detail implements fetch.DetailProvider.
func (r *Redis) Detail(ctx context.Context, id string) (string, error) {
	detail, err := r.redis.HGet(ctx, r.detailsKey(), id).Result()
	if err != nil {
		if err == redis.Nil {
			return "", fmt.Errorf("item %s: %w", id, fetch.ErrDetailNotFound)
		}
		return "", fmt.Errorf("redis hget: %w", err)
	}
	return detail, nil
}
