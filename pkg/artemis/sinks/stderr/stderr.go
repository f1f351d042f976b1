// Package stderr provides a sink that prints reports to stderr in
// human-readable format. Useful for development and debugging.
package stderr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-colorable"

	"github.com/strongdm/artemis-observe/pkg/artemis"
)

// StderrSinkOption configures the stderr sink.
type StderrSinkOption func(*stderrSinkConfig)

type stderrSinkConfig struct {
	verbose bool
	color   bool
	out     io.Writer
}

// WithVerbose enables full frame listings.
func WithVerbose() StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.verbose = true
	}
}

// WithColor colors the level by severity. On Windows consoles the escape
// sequences are translated by go-colorable.
func WithColor() StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.color = true
	}
}

// WithWriter redirects output away from os.Stderr.
func WithWriter(w io.Writer) StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.out = w
	}
}

// stderrSink writes reports to stderr in human-readable format.
type stderrSink struct {
	verbose bool
	color   bool
	out     io.Writer
}

// NewStderrSink creates a sink that writes to stderr.
func NewStderrSink(opts ...StderrSinkOption) artemis.Sink {
	cfg := &stderrSinkConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.out == nil {
		if cfg.color {
			cfg.out = colorable.NewColorableStderr()
		} else {
			cfg.out = os.Stderr
		}
	}
	return &stderrSink{
		verbose: cfg.verbose,
		color:   cfg.color,
		out:     cfg.out,
	}
}

var levelColors = map[string]string{
	artemis.LevelCritical: "\x1b[35m",
	artemis.LevelError:    "\x1b[31m",
	artemis.LevelWarning:  "\x1b[33m",
	artemis.LevelInfo:     "\x1b[36m",
}

func (s *stderrSink) level(level string) string {
	text := strings.ToUpper(level)
	if code, ok := levelColors[level]; ok && s.color {
		return code + text + "\x1b[0m"
	}
	return text
}

// Write formats and outputs the report.
func (s *stderrSink) Write(ctx context.Context, report artemis.Report) error {
	// Format: [ARTEMIS] <timestamp> <LEVEL> <kind> <class>
	sec := int64(report.Time)
	nsec := int64((report.Time - float64(sec)) * 1e9)
	timestamp := time.Unix(sec, nsec).UTC().Format("2006-01-02T15:04:05Z07:00")

	parts := []string{fmt.Sprintf("[ARTEMIS] %s %s %s", timestamp, s.level(report.Level), report.Kind)}
	if report.Trace != nil {
		parts = append(parts, report.Trace.ExceptionClass)
	}
	fmt.Fprintln(s.out, strings.Join(parts, " "))

	if report.Trace != nil && report.Trace.Message != "" {
		fmt.Fprintf(s.out, "        Message: %s\n", report.Trace.Message)
	}
	if report.Fingerprint != "" {
		fmt.Fprintf(s.out, "        Fingerprint: %s\n", report.Fingerprint)
	}
	if report.Request != nil {
		fmt.Fprintf(s.out, "        Request: %s %s\n", report.Request.Method, report.Request.URL)
	}

	if s.verbose && report.Trace != nil {
		for node := report.Trace; node != nil; node = node.Previous {
			fmt.Fprintf(s.out, "        Trace (%s):\n", node.ExceptionClass)
			for _, f := range node.Frames {
				if f.Method != "" {
					fmt.Fprintf(s.out, "          %s\n            %s:%d\n", f.Method, f.Filename, f.Line)
				} else {
					fmt.Fprintf(s.out, "          %s:%d\n", f.Filename, f.Line)
				}
			}
		}
	}

	return nil
}

// Flush is a no-op for stderr sink.
func (s *stderrSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for stderr sink.
func (s *stderrSink) Close() error {
	return nil
}
