package pagination

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidPageSize is returned when a requested page size is not positive.
var ErrInvalidPageSize = errors.New("page size must be positive")

// PageRequest identifies one page of a listing.
type PageRequest struct {
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// End returns the offset just past the requested page.
func (r PageRequest) End() int {
	return r.Offset + r.Count
}

// Cursor accumulates page requests. The zero value is ready to use.
type Cursor struct {
	last PageRequest
}

// Next returns the request for the next page of the given size.
func (c *Cursor) Next(size int) PageRequest {
	c.last = PageRequest{Offset: c.last.End(), Count: size}
	return c.last
}

// Last returns the most recently produced request.
func (c *Cursor) Last() PageRequest {
	return c.last
}

// Scan reads page sizes and writes the matching page requests to out.
// out is closed when sizes is closed, ctx is done or an invalid size arrives.
func Scan(ctx context.Context, sizes <-chan int, out chan<- PageRequest) error {
	defer close(out)

	var cursor Cursor
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case size, ok := <-sizes:
			if !ok {
				return nil
			}
			if size <= 0 {
				return fmt.Errorf("%w: got %d", ErrInvalidPageSize, size)
			}

			select {
			case out <- cursor.Next(size):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
