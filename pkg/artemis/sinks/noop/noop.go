// Package noop provides a sink that discards all reports, for hosts that
// want signals classified and deduplicated without persisting anything.
package noop

import (
	"context"

	"github.com/strongdm/artemis-observe/pkg/artemis"
)

type noopSink struct{}

// NewNoopSink creates a sink that discards all reports.
func NewNoopSink() artemis.Sink {
	return &noopSink{}
}

func (s *noopSink) Write(ctx context.Context, report artemis.Report) error {
	return nil
}

func (s *noopSink) Flush(ctx context.Context) error {
	return nil
}

func (s *noopSink) Close() error {
	return nil
}
