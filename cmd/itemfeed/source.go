package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/item-feed/pkg/client"
	"github.com/Sternrassler/item-feed/pkg/fetch"
	"github.com/Sternrassler/item-feed/pkg/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

// Source kinds.
const (
	sourceMemory = "memory"
	sourceRedis  = "redis"
	sourceHTTP   = "http"
)

// sourceOptions selects and configures the page and detail provider.
type sourceOptions struct {
	kind string

	// memory and redis seeding
	items        int
	missingEvery int
	latency      time.Duration

	// redis
	redisAddr   string
	redisPrefix string
	seed        bool

	// http
	baseURL   string
	userAgent string
}

func (o *sourceOptions) addFlags(fs *pflag.FlagSet, kinds string) {
	fs.StringVar(&o.kind, "source", getEnv("ITEMFEED_SOURCE", sourceMemory), "item source ("+kinds+")")
	fs.IntVar(&o.items, "items", getEnvInt("ITEMFEED_ITEMS", 100), "number of generated items (memory, or redis with --seed)")
	fs.IntVar(&o.missingEvery, "missing-every", getEnvInt("ITEMFEED_MISSING_EVERY", 0), "every Nth generated item has no detail (0 = none)")
	fs.DurationVar(&o.latency, "latency", getEnvDuration("ITEMFEED_LATENCY", 0), "artificial latency per memory lookup")
	fs.StringVar(&o.redisAddr, "redis-addr", getEnv("REDIS_URL", "localhost:6379"), "Redis address")
	fs.StringVar(&o.redisPrefix, "redis-prefix", getEnv("REDIS_PREFIX", repository.DefaultKeyPrefix), "Redis key prefix")
	fs.BoolVar(&o.seed, "seed", getEnvBool("ITEMFEED_SEED", false), "replace the Redis listing with generated items")
	fs.StringVar(&o.baseURL, "url", getEnv("ITEMFEED_URL", "http://localhost:8080"), "items API base URL (http source)")
	fs.StringVar(&o.userAgent, "user-agent", getEnv("USER_AGENT", "item-feed/0.1.0"), "User-Agent for the items API")
}

// source is an opened provider pair.
type source struct {
	pages   fetch.PageProvider
	details fetch.DetailProvider
	close   func() error
}

func openSource(ctx context.Context, opts sourceOptions) (*source, error) {
	switch opts.kind {
	case sourceMemory:
		repo := repository.Generate(opts.items, opts.missingEvery)
		repo.Latency = opts.latency
		log.Info().Int("items", repo.Len()).Msg("Generated in-memory listing")
		return &source{pages: repo, details: repo, close: func() error { return nil }}, nil

	case sourceRedis:
		redisClient := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", opts.redisAddr, err)
		}
		log.Info().Str("addr", opts.redisAddr).Msg("Connected to Redis")

		repo := repository.NewRedis(redisClient, opts.redisPrefix)
		if opts.seed {
			if err := seedRedis(ctx, repo, opts); err != nil {
				redisClient.Close()
				return nil, err
			}
		}
		return &source{pages: repo, details: repo, close: redisClient.Close}, nil

	case sourceHTTP:
		cfg := client.DefaultConfig(opts.baseURL)
		cfg.UserAgent = opts.userAgent
		c, err := client.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("create items client: %w", err)
		}
		return &source{pages: c, details: c, close: func() error { return nil }}, nil

	default:
		return nil, fmt.Errorf("unknown source %q", opts.kind)
	}
}

func seedRedis(ctx context.Context, repo *repository.Redis, opts sourceOptions) error {
	if err := repo.Clear(ctx); err != nil {
		return err
	}
	items, details := repository.Generate(opts.items, opts.missingEvery).Snapshot()
	if err := repo.Seed(ctx, items, details); err != nil {
		return err
	}
	log.Info().Int("items", len(items)).Str("prefix", opts.redisPrefix).Msg("Seeded Redis listing")
	return nil
}
