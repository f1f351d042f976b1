// sink.go defines the Sink interface for report destinations.

package artemis

import "context"

// Sink is the destination for reports.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Write persists a report. Called once per report, after redaction and
	// depth checks. A failed write is final for that report.
	Write(ctx context.Context, report Report) error

	// Flush ensures any buffered reports are persisted.
	// For synchronous sinks, this may be a no-op.
	Flush(ctx context.Context) error

	// Close releases resources held by the sink.
	// After Close is called, Write and Flush should return errors.
	Close() error
}
