package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/item-feed/pkg/listmodel"
	"github.com/Sternrassler/item-feed/pkg/pipeline"
	"github.com/Sternrassler/item-feed/pkg/ratelimit"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	source sourceOptions

	firstPageSize   int
	pageSize        int
	debounce        time.Duration
	timeout         time.Duration
	rps             float64
	isolateFailures bool
	stopOnShortPage bool

	// autoTrigger > 0 replaces stdin with a ticker
	autoTrigger time.Duration
	maxTriggers int
}

func newWatchCmd() *cobra.Command {
	opts := &watchOptions{}
	defaults := pipeline.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Load a listing page by page and print rows as details arrive",
		Long: `Runs the loading pipeline against a source. Every line read from stdin
requests one more page; with --auto-trigger a ticker does it instead.
The pipeline finishes once triggers end and all fetches have completed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	opts.source.addFlags(cmd.Flags(), "memory, redis, http")
	cmd.Flags().IntVar(&opts.firstPageSize, "first-page", getEnvInt("ITEMFEED_FIRST_PAGE_SIZE", defaults.FirstPageSize), "size of the initial page")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", getEnvInt("ITEMFEED_PAGE_SIZE", defaults.PageSize), "size of every later page")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", getEnvDuration("ITEMFEED_DEBOUNCE", defaults.DebounceWindow), "quiet period before a trigger burst loads a page")
	cmd.Flags().DurationVar(&opts.timeout, "fetch-timeout", getEnvDuration("ITEMFEED_FETCH_TIMEOUT", defaults.Fetch.Timeout), "timeout per provider call (0 = none)")
	cmd.Flags().Float64Var(&opts.rps, "rps", 0, "max provider calls per second (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.isolateFailures, "isolate-failures", getEnvBool("ITEMFEED_ISOLATE_FAILURES", false), "drop failed details instead of failing the stream")
	cmd.Flags().BoolVar(&opts.stopOnShortPage, "stop-on-short-page", getEnvBool("ITEMFEED_STOP_ON_SHORT_PAGE", false), "stop requesting pages after a short page")
	cmd.Flags().DurationVar(&opts.autoTrigger, "auto-trigger", 0, "emit a trigger at this interval instead of reading stdin")
	cmd.Flags().IntVar(&opts.maxTriggers, "max-triggers", 0, "stop after this many auto triggers (0 = until interrupted)")

	return cmd
}

func (o *watchOptions) pipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.FirstPageSize = o.firstPageSize
	cfg.PageSize = o.pageSize
	cfg.DebounceWindow = o.debounce
	cfg.IsolateDetailFailures = o.isolateFailures
	cfg.StopOnShortPage = o.stopOnShortPage
	cfg.Fetch.Timeout = o.timeout
	if o.rps > 0 {
		cfg.Fetch.RateLimit = ratelimit.Config{RequestsPerSecond: o.rps, Burst: 1}
	}
	return cfg
}

func runWatch(ctx context.Context, opts *watchOptions, in io.Reader, out io.Writer) error {
	src, err := openSource(ctx, opts.source)
	if err != nil {
		return err
	}
	defer src.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	triggers := make(chan struct{})
	if opts.autoTrigger > 0 {
		go tickTriggers(ctx, opts.autoTrigger, opts.maxTriggers, triggers)
	} else {
		go readTriggers(ctx, in, triggers)
	}

	p, err := pipeline.New(src.pages, src.details, triggers, opts.pipelineConfig())
	if err != nil {
		return err
	}

	updates := p.Subscribe()
	defer updates.Close()
	raw := p.Triggers()
	defer raw.Close()

	if err := p.Start(ctx); err != nil {
		return err
	}

	list := listmodel.New()
	consumeErr := list.Consume(ctx, updates.Events(), raw.Events(), func(u pipeline.Update, change listmodel.Change) {
		printChange(out, list, u, change)
	})

	runErr := p.Wait()
	fmt.Fprintf(out, "%d items loaded, state %s\n", list.Len(), p.State())

	if errors.Is(runErr, pipeline.ErrCancelled) {
		return nil
	}
	if runErr != nil {
		return runErr
	}
	if consumeErr != nil && !errors.Is(consumeErr, context.Canceled) {
		return consumeErr
	}
	return nil
}

func printChange(out io.Writer, list *listmodel.List, u pipeline.Update, change listmodel.Change) {
	switch u.Kind {
	case pipeline.KindAppendItems:
		for i := change.From; i < change.To; i++ {
			row := list.Row(i)
			fmt.Fprintf(out, "+ [%d] %s %s\n", i, row.ID, row.Title)
		}
	case pipeline.KindUpdateDetail:
		if change.Reloaded >= 0 {
			row := list.Row(change.Reloaded)
			fmt.Fprintf(out, "~ [%d] %s: %s\n", change.Reloaded, row.ID, row.Detail)
		}
	}
}

// readTriggers emits one trigger per line and closes out at EOF.
func readTriggers(ctx context.Context, in io.Reader, out chan<- struct{}) {
	defer close(out)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case out <- struct{}{}:
		case <-ctx.Done():
			return
		}
	}
}

// tickTriggers emits a trigger every interval. After limit triggers (when
// limit > 0) it closes out.
func tickTriggers(ctx context.Context, interval time.Duration, limit int, out chan<- struct{}) {
	defer close(out)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for sent := 0; limit <= 0 || sent < limit; {
		select {
		case <-ticker.C:
			select {
			case out <- struct{}{}:
				sent++
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
