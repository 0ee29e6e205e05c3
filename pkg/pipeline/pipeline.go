// Package pipeline turns "load more" triggers into a single stream of page
// appends and per-item detail updates.
//
// Pages are fetched strictly one at a time. Every fetched page is published
// as an AppendItems update before the details of its items are requested;
// those detail fetches then run concurrently with each other and with later
// page fetches. The merged stream is hot: it is computed once, shared by all
// subscribers and never replayed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/item-feed/pkg/fetch"
	"github.com/Sternrassler/item-feed/pkg/item"
	"github.com/Sternrassler/item-feed/pkg/logging"
	"github.com/Sternrassler/item-feed/pkg/pagination"
	"github.com/Sternrassler/item-feed/pkg/stream"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrCancelled is the terminal error of a stopped pipeline.
	ErrCancelled = errors.New("pipeline cancelled")

	// ErrAlreadyStarted is returned by Start on a pipeline that was started or stopped.
	ErrAlreadyStarted = errors.New("pipeline already started")

	errStreamClosed = errors.New("update stream closed")
)

// Pipeline is one pagination/enrichment session. It is not reusable: build
// a new Pipeline after it reaches a terminal state.
type Pipeline struct {
	pages    *fetch.PageFetcher
	details  *fetch.DetailFetcher
	triggers <-chan struct{}
	config   Config
	logger   zerolog.Logger

	updates     *stream.Broadcaster[Update]
	rawTriggers *stream.Broadcaster[struct{}]

	mu      sync.Mutex
	state   State
	err     error
	failure error
	cancel  context.CancelCauseFunc
	done    chan struct{}
}

// New creates a pipeline. Every value received on triggers is one request
// for more data; closing triggers lets the pipeline complete once pending
// work has drained.
func New(pages fetch.PageProvider, details fetch.DetailProvider, triggers <-chan struct{}, cfg Config) (*Pipeline, error) {
	if pages == nil {
		return nil, fmt.Errorf("page provider is required")
	}
	if details == nil {
		return nil, fmt.Errorf("detail provider is required")
	}
	if triggers == nil {
		return nil, fmt.Errorf("trigger channel is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Pipeline{
		pages:       fetch.NewPageFetcher(pages, cfg.Fetch),
		details:     fetch.NewDetailFetcher(details, cfg.Fetch),
		triggers:    triggers,
		config:      cfg,
		logger:      logging.NewLogger("pipeline"),
		updates:     stream.NewBroadcaster[Update](cfg.SubscriberBuffer),
		rawTriggers: stream.NewBroadcaster[struct{}](cfg.SubscriberBuffer),
		done:        make(chan struct{}),
	}, nil
}

// Subscribe attaches to the merged update stream. Only updates published
// after the call are delivered.
func (p *Pipeline) Subscribe() *stream.Subscription[Update] {
	return p.updates.Subscribe()
}

// Triggers attaches to the raw trigger stream, before debouncing. It lets a
// consumer react to a trigger immediately, e.g. to show a loading indicator.
func (p *Pipeline) Triggers() *stream.Subscription[struct{}] {
	return p.rawTriggers.Subscribe()
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start activates the pipeline and returns immediately. The first page is
// requested right away.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	p.cancel = cancel
	p.state = StateRunning
	pipelinesActive.Inc()

	p.logger.Info().
		Int("first_page_size", p.config.FirstPageSize).
		Int("page_size", p.config.PageSize).
		Dur("debounce_window", p.config.DebounceWindow).
		Bool("isolate_detail_failures", p.config.IsolateDetailFailures).
		Msg("Pipeline started")

	go p.run(runCtx)
	return nil
}

// Run starts the pipeline and blocks until it reaches a terminal state.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	return p.Wait()
}

// Stop cancels the trigger relay and every in-flight fetch, then waits for
// all pipeline goroutines to exit. No provider call is issued after Stop
// returns.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.state == StateIdle {
		p.state = StateCancelled
		p.err = ErrCancelled
		p.mu.Unlock()

		p.updates.Close(ErrCancelled)
		p.rawTriggers.Close(ErrCancelled)
		close(p.done)
		return
	}
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel(ErrCancelled)
	}
	<-p.done
}

// Done is closed once the pipeline reaches a terminal state.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the pipeline reaches a terminal state and returns its
// terminal error: nil on completion, a *fetch.FetchError on failure, or an
// error wrapping ErrCancelled.
func (p *Pipeline) Wait() error {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pipeline) run(ctx context.Context) {
	defer close(p.done)
	defer pipelinesActive.Dec()

	err := p.execute(ctx)

	p.mu.Lock()
	failure := p.failure
	p.mu.Unlock()

	var state State
	var termErr error
	switch {
	case failure != nil:
		state, termErr = StateFailed, failure
	case err == nil:
		state = StateCompleted
	case ctx.Err() != nil:
		state, termErr = StateCancelled, cancelError(context.Cause(ctx))
	default:
		state, termErr = StateFailed, err
	}
	p.cancel(termErr)

	p.updates.Close(termErr)
	p.rawTriggers.Close(termErr)

	p.mu.Lock()
	p.state = state
	p.err = termErr
	p.mu.Unlock()

	pipelineRunsTotal.WithLabelValues(state.String()).Inc()
	switch state {
	case StateFailed:
		p.logger.Error().
			Err(termErr).
			Str("error_kind", string(fetch.KindOf(termErr))).
			Msg("Pipeline failed")
	case StateCancelled:
		p.logger.Info().Msg("Pipeline cancelled")
	default:
		p.logger.Info().Msg("Pipeline completed")
	}
}

func cancelError(cause error) error {
	if cause == nil || errors.Is(cause, ErrCancelled) {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

// execute wires the stages:
// triggers -> relay -> debounce -> sizes -> cursor -> sequential pages -> details.
func (p *Pipeline) execute(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	relayed := make(chan struct{})
	debounced := make(chan struct{})
	sizes := make(chan int)
	requests := make(chan pagination.PageRequest)

	g.Go(func() error {
		return p.relayTriggers(gctx, relayed)
	})
	g.Go(func() error {
		return stream.Debounce(gctx, p.config.DebounceWindow, relayed, debounced)
	})
	g.Go(func() error {
		return p.emitSizes(gctx, debounced, sizes)
	})
	g.Go(func() error {
		return pagination.Scan(gctx, sizes, requests)
	})
	g.Go(func() error {
		loader := pagination.NewSequentialFetcher(p.pages, p.config.paginationConfig())
		err := loader.Run(gctx, requests, func(ctx context.Context, res pagination.PageResult) error {
			return p.publishPage(ctx, g, res)
		})
		if fetch.KindOf(err) != "" {
			return p.abort(err)
		}
		return err
	})

	return g.Wait()
}

// abort records err as the terminal failure and closes the update stream
// at once so that no later event reaches a subscriber.
func (p *Pipeline) abort(err error) error {
	p.mu.Lock()
	first := p.failure == nil
	if first {
		p.failure = err
	}
	cancel := p.cancel
	p.mu.Unlock()

	if first {
		cancel(err)
		p.updates.Close(err)
	}
	return err
}

func (p *Pipeline) relayTriggers(ctx context.Context, out chan<- struct{}) error {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-p.triggers:
			if !ok {
				p.logger.Debug().Msg("Trigger source closed")
				return nil
			}
			triggersTotal.WithLabelValues("raw").Inc()
			p.rawTriggers.Publish(ctx, struct{}{})

			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// emitSizes emits the first page size, then one page size per debounced
// trigger. Sizes queue up while a page fetch is in flight so the debounce
// stage never waits on the page stage.
func (p *Pipeline) emitSizes(ctx context.Context, debounced <-chan struct{}, out chan<- int) error {
	defer close(out)

	queue := []int{p.config.FirstPageSize}
	in := debounced

	for in != nil || len(queue) > 0 {
		var send chan<- int
		var next int
		if len(queue) > 0 {
			send = out
			next = queue[0]
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			triggersTotal.WithLabelValues("debounced").Inc()
			queue = append(queue, p.config.PageSize)
		case send <- next:
			queue = queue[1:]
		}
	}
	return nil
}

// publishPage appends a page and then fans out one detail fetch per item.
// An empty page is still published so consumers see the request resolve.
func (p *Pipeline) publishPage(ctx context.Context, g *errgroup.Group, res pagination.PageResult) error {
	if len(res.Items) == 0 {
		p.logger.Debug().
			Int("offset", res.Request.Offset).
			Int("count", res.Request.Count).
			Msg("Empty page")
	}

	if !p.updates.Publish(ctx, AppendItems(res.Items)) {
		return publishError(ctx)
	}
	updatesPublishedTotal.WithLabelValues(KindAppendItems.String()).Inc()

	for _, it := range res.Items {
		g.Go(func() error {
			return p.resolveDetail(ctx, it)
		})
	}
	return nil
}

func (p *Pipeline) resolveDetail(ctx context.Context, it item.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	detail, err := p.details.Fetch(ctx, it.ID)
	if err != nil {
		if fetch.KindOf(err) == "" {
			return err
		}
		if p.config.IsolateDetailFailures {
			detailFailuresIsolatedTotal.Inc()
			p.logger.Warn().
				Err(err).
				Str("item_id", it.ID).
				Msg("Detail dropped")
			return nil
		}
		return p.abort(err)
	}

	if !p.updates.Publish(ctx, UpdateDetail(detail.ItemID, detail.Text)) {
		return publishError(ctx)
	}
	updatesPublishedTotal.WithLabelValues(KindUpdateDetail.String()).Inc()
	return nil
}

func publishError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errStreamClosed
}
