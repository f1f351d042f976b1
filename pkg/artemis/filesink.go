// filesink.go persists reports as one JSON document per file.

package artemis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
)

// FileExtension is appended to every report file name.
const FileExtension = "kharon"

// FileSinkOption configures the file sink.
type FileSinkOption func(*fileSinkConfig)

type fileSinkConfig struct {
	ext  string
	perm os.FileMode
	pid  int
}

// WithFileExtension overrides FileExtension.
func WithFileExtension(ext string) FileSinkOption {
	return func(c *fileSinkConfig) {
		if ext != "" {
			c.ext = ext
		}
	}
}

// WithFileMode sets the permission bits of written files (default 0644).
func WithFileMode(perm os.FileMode) FileSinkOption {
	return func(c *fileSinkConfig) {
		c.perm = perm
	}
}

// FileSink writes each report to <dir>/<kind>-<pid>-<time>.<ext>.
type FileSink struct {
	dir    string
	ext    string
	perm   os.FileMode
	pid    string
	closed atomic.Bool
}

// NewFileSink creates a sink writing into dir. The directory is not checked
// here; Initialize validates it.
func NewFileSink(dir string, opts ...FileSinkOption) *FileSink {
	cfg := &fileSinkConfig{
		ext:  FileExtension,
		perm: 0o644,
		pid:  os.Getpid(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &FileSink{
		dir:  dir,
		ext:  cfg.ext,
		perm: cfg.perm,
		pid:  strconv.Itoa(cfg.pid),
	}
}

// Path returns the file name report is written to.
func (s *FileSink) Path(report Report) string {
	name := string(report.Kind) + "-" + s.pid + "-" + FormatTime(report.Time) + "." + s.ext
	return filepath.Join(s.dir, name)
}

// Write encodes report and writes it in a single call. There is no
// temporary file or rename: a crash mid-write can leave a truncated file.
func (s *FileSink) Write(ctx context.Context, report Report) error {
	if s.closed.Load() {
		return errors.New("file sink is closed")
	}
	data, err := EncodeDocument(report.Document())
	if err != nil {
		return err
	}
	path := s.Path(report)
	if err := os.WriteFile(path, data, s.perm); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIO, path, err)
	}
	return nil
}

// Flush is a no-op; writes are synchronous.
func (s *FileSink) Flush(ctx context.Context) error {
	return nil
}

// Close marks the sink closed.
func (s *FileSink) Close() error {
	s.closed.Store(true)
	return nil
}
