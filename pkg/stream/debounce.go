package stream

import (
	"context"
	"time"
)

// Debounce forwards a value from in to out only after window has passed
// without another value arriving. A value still pending when in closes is
// flushed before out is closed.
func Debounce[T any](ctx context.Context, window time.Duration, in <-chan T, out chan<- T) error {
	defer close(out)

	timer := time.NewTimer(window)
	timer.Stop()
	defer timer.Stop()

	var (
		pending T
		armed   bool
	)

	emit := func() error {
		armed = false
		select {
		case out <- pending:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		var fire <-chan time.Time
		if armed {
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-in:
			if !ok {
				if armed {
					return emit()
				}
				return nil
			}
			pending = v
			armed = true
			timer.Reset(window)
		case <-fire:
			if err := emit(); err != nil {
				return err
			}
		}
	}
}
