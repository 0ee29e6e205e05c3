package fetch

import (
	"errors"
	"fmt"
)

// ErrDetailNotFound is returned by a DetailProvider when an item has no detail.
var ErrDetailNotFound = errors.New("detail not found")

// ErrorKind classifies a fetch failure.
type ErrorKind string

const (
	// KindPageFetchFailed is any provider error while loading a page.
	KindPageFetchFailed ErrorKind = "page_fetch_failed"

	// KindDetailNotFound means the provider has no detail for the item.
	KindDetailNotFound ErrorKind = "detail_not_found"

	// KindDetailFetchFailed is any other provider error while loading a detail.
	KindDetailFetchFailed ErrorKind = "detail_fetch_failed"
)

// FetchError describes a failed page or detail fetch.
type FetchError struct {
	Kind   ErrorKind
	Offset int
	Count  int
	ItemID string
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Kind == KindPageFetchFailed {
		return fmt.Sprintf("%s (offset %d, count %d): %v", e.Kind, e.Offset, e.Count, e.Err)
	}
	return fmt.Sprintf("%s (item %s): %v", e.Kind, e.ItemID, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a fetch error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func pageError(offset, count int, err error) error {
	return &FetchError{Kind: KindPageFetchFailed, Offset: offset, Count: count, Err: err}
}

func detailError(id string, err error) error {
	kind := KindDetailFetchFailed
	if errors.Is(err, ErrDetailNotFound) {
		kind = KindDetailNotFound
	}
	return &FetchError{Kind: kind, ItemID: id, Err: err}
}
