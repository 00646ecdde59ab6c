package tradfri

import (
	"context"
	"errors"

	"hemtjan.st/tradfrigw/transport"
)

// Iterator walks the resources of one endpoint. It lists the ids on the
// first call to Next and fetches one resource per call after that. It is
// single pass and not safe for concurrent use.
//
//	it := gw.Devices()
//	for it.Next(ctx) {
//		dev, err := it.Value()
//		...
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
//
// A resource that fails to fetch or decode is yielded with its error and
// iteration continues. A failure of the session itself ends iteration and
// is reported by Err.
type Iterator[T any] struct {
	list  func(context.Context) ([]ResourceID, error)
	fetch func(context.Context, ResourceID) (T, error)

	ids    []ResourceID
	listed bool
	pos    int

	id     ResourceID
	cur    T
	curErr error
	err    error
}

type DeviceIterator = Iterator[Device]
type GroupIterator = Iterator[*Group]

func newIterator[T any](list func(context.Context) ([]ResourceID, error), fetch func(context.Context, ResourceID) (T, error)) *Iterator[T] {
	return &Iterator[T]{list: list, fetch: fetch}
}

func (it *Iterator[T]) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if !it.listed {
		it.listed = true
		ids, err := it.list(ctx)
		if err != nil {
			it.err = err
			return false
		}
		it.ids = ids
	}
	if it.pos >= len(it.ids) {
		return false
	}

	var zero T
	it.id = it.ids[it.pos]
	it.pos++
	v, err := it.fetch(ctx, it.id)
	if err != nil && fatal(err) {
		it.cur, it.curErr, it.err = zero, nil, err
		return false
	}
	it.cur, it.curErr = v, err
	return true
}

// Value returns the current resource or the error fetching it.
func (it *Iterator[T]) Value() (T, error) {
	return it.cur, it.curErr
}

// ID of the current resource.
func (it *Iterator[T]) ID() ResourceID {
	return it.id
}

// Remaining is the number of ids not yet visited.
func (it *Iterator[T]) Remaining() int {
	return len(it.ids) - it.pos
}

func (it *Iterator[T]) Err() error {
	return it.err
}

// fatal reports whether err leaves the session unusable.
func fatal(err error) bool {
	return errors.Is(err, transport.ErrTransport) ||
		errors.Is(err, transport.ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
