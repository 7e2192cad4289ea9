package service

import (
	"io"

	"github.com/theplant/clienttrace/kerrs"
)

// NoopCloser is an adapter from `func()` to io.Closer, that calls
// given function and returns nil
type NoopCloser func()

// Close is part of io.Closer
func (f NoopCloser) Close() error {
	f()
	return nil
}

var noopCloser = NoopCloser(func() {})

// FuncCloser aggregates io.Closers into a single io.Closer that
// collects errors from each io.Closer function in the array when
// closed.
type FuncCloser []io.Closer

// Close is part of io.Closer
func (f FuncCloser) Close() error {
	var err error
	for _, c := range f {
		if c == nil {
			continue
		}
		if e := c.Close(); e != nil {
			err = kerrs.Append(err, e)
		}
	}
	return err
}
