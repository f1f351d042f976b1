// Package multi provides a sink that fans one report out to several sinks.
// Each sink is isolated: an error or panic in one does not keep the report
// from the others.
package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/strongdm/artemis-observe/pkg/artemis"
)

// ErrSinkPanic wraps a panic recovered from a child sink.
var ErrSinkPanic = errors.New("sink panicked")

type fanout struct {
	sinks []artemis.Sink
}

// NewMultiSink returns a sink writing every report to each of sinks in
// order. Failures are joined with errors.Join.
func NewMultiSink(sinks ...artemis.Sink) artemis.Sink {
	return &fanout{sinks: sinks}
}

func (f *fanout) Write(ctx context.Context, report artemis.Report) error {
	return f.each(func(s artemis.Sink) error { return s.Write(ctx, report) })
}

func (f *fanout) Flush(ctx context.Context) error {
	return f.each(func(s artemis.Sink) error { return s.Flush(ctx) })
}

func (f *fanout) Close() error {
	return f.each(artemis.Sink.Close)
}

func (f *fanout) each(call func(artemis.Sink) error) error {
	var errs []error
	for i, s := range f.sinks {
		if err := guarded(i, s, call); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// guarded runs call on s, turning a panic into an error.
func guarded(i int, s artemis.Sink, call func(artemis.Sink) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: sink %d (%T): %v", ErrSinkPanic, i, s, p)
		}
	}()
	return call(s)
}
