// capture.go provides the Handle that receives exception and error signals
// and routes them through the report pipeline.

package artemis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"
)

// Hooks selects which signal sources a Handle reports. Explicit
// CaptureException and CaptureError calls always report.
type Hooks struct {
	// Exceptions reports panics recovered through Recover and the HTTP
	// middleware.
	Exceptions bool

	// Errors reports signals raised with Trigger.
	Errors bool

	// Fatal reports the last observed error at Shutdown when it is fatal.
	Fatal bool
}

// AllHooks enables every hook.
func AllHooks() Hooks {
	return Hooks{Exceptions: true, Errors: true, Fatal: true}
}

// Option configures a Handle.
type Option func(*handleConfig)

type handleConfig struct {
	sink     Sink
	logger   *slog.Logger
	now      func() time.Time
	hostname *string
	dedup    *Deduplicator
}

// WithSink replaces the default file sink. Compose with the multi sink to
// keep file output.
func WithSink(sink Sink) Option {
	return func(c *handleConfig) {
		c.sink = sink
	}
}

// WithLogger sets the diagnostic logger. Pipeline failures are logged here
// and nowhere else. Default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *handleConfig) {
		c.logger = logger
	}
}

// WithClock overrides the report time source.
func WithClock(now func() time.Time) Option {
	return func(c *handleConfig) {
		c.now = now
	}
}

// WithHostname overrides the host name stored in reports.
func WithHostname(name string) Option {
	return func(c *handleConfig) {
		c.hostname = &name
	}
}

// WithDeduplicator shares a Deduplicator between handles, for hosts that
// replace their handle during the process lifetime.
func WithDeduplicator(d *Deduplicator) Option {
	return func(c *handleConfig) {
		c.dedup = d
	}
}

// Handle is an initialized capture module. A nil *Handle is inert: every
// method is a no-op, so hosts may keep the result of a failed Initialize.
type Handle struct {
	hooks   Hooks
	builder *ReportBuilder
	dedup   *Deduplicator
	sink    Sink
	logger  *slog.Logger

	mu         sync.Mutex
	registered bool
	lastError  *DedupKey
}

// Initialize validates cfg and returns a registered Handle. It fails with
// ErrDisabled when cfg is not enabled and with ErrConfiguration when the
// log directory is missing or not writable; no hooks are active then.
func Initialize(cfg Config, hooks Hooks, opts ...Option) (*Handle, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	info, err := os.Stat(cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("%w: log_dir: %v", ErrConfiguration, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: log_dir %s is not a directory", ErrConfiguration, cfg.LogDir)
	}
	if !dirWritable(cfg.LogDir) {
		return nil, fmt.Errorf("%w: log_dir %s is not writable", ErrConfiguration, cfg.LogDir)
	}

	hc := &handleConfig{}
	for _, opt := range opts {
		opt(hc)
	}
	if hc.sink == nil {
		hc.sink = NewFileSink(cfg.LogDir)
	}
	if hc.logger == nil {
		hc.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if hc.dedup == nil {
		hc.dedup = NewDeduplicator()
	}
	hostname := CaptureServer().Host
	if hc.hostname != nil {
		hostname = *hc.hostname
	}

	return &Handle{
		hooks:      hooks,
		builder:    NewReportBuilder(cfg, hc.now, hostname),
		dedup:      hc.dedup,
		sink:       hc.sink,
		logger:     hc.logger,
		registered: true,
	}, nil
}

// Registered reports whether h accepts signals.
func (h *Handle) Registered() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registered
}

// Hooks returns the hooks h was initialized with.
func (h *Handle) Hooks() Hooks {
	if h == nil {
		return Hooks{}
	}
	return h.hooks
}

// CaptureOption configures a single CaptureException call.
type CaptureOption func(*captureOptions)

type captureOptions struct {
	extra   Value
	payload *Map
}

// WithExtra attaches v to the outermost trace node.
func WithExtra(v Value) CaptureOption {
	return func(o *captureOptions) {
		o.extra = v
	}
}

// WithPayload merges m into the report document (see MergeRecursive).
func WithPayload(m *Map) CaptureOption {
	return func(o *captureOptions) {
		o.payload = m
	}
}

// CaptureException reports err and its causes. The request attached to ctx
// with WithRequestContext, if any, is included. Failures are logged and
// never returned.
func (h *Handle) CaptureException(ctx context.Context, err error, opts ...CaptureOption) {
	if err == nil || !h.Registered() {
		return
	}
	defer h.contain(ReportKindException)

	var co captureOptions
	for _, opt := range opts {
		opt(&co)
	}
	rc, _ := RequestContextFromContext(ctx)
	report, berr := h.builder.BuildException(rc, err, co.extra, co.payload)
	if berr != nil {
		h.logger.Warn("artemis: report dropped", "kind", ReportKindException, "err", berr)
		return
	}
	h.write(ctx, report)
}

// CaptureError reports an error signal raised at file:line. A signal equal
// in all four fields to one already reported by this handle is dropped.
func (h *Handle) CaptureError(ctx context.Context, kind ErrorKind, msg, file string, line int) {
	key := DedupKey{Kind: kind, Message: msg, File: file, Line: line}
	if !h.observe(key) {
		return
	}
	h.captureError(ctx, key, 1)
}

// Trigger raises an error signal located at the caller. It is reported
// only when the Errors hook is enabled, but always becomes the last error
// seen by the Fatal hook.
func (h *Handle) Trigger(ctx context.Context, kind ErrorKind, msg string) {
	h.trigger(ctx, kind, msg, 1)
}

func (h *Handle) trigger(ctx context.Context, kind ErrorKind, msg string, skip int) {
	_, file, line, _ := runtime.Caller(skip + 1)
	key := DedupKey{Kind: kind, Message: msg, File: file, Line: line}
	if !h.observe(key) || !h.hooks.Errors {
		return
	}
	h.captureError(ctx, key, skip+1)
}

// observe records key as the last error and reports whether h is active.
func (h *Handle) observe(key DedupKey) bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.registered {
		return false
	}
	h.lastError = &key
	return true
}

func (h *Handle) captureError(ctx context.Context, key DedupKey, skip int) {
	defer h.contain(ReportKindError)

	if !h.dedup.Observe(key) {
		h.logger.Debug("artemis: duplicate error dropped", "fingerprint", key.Fingerprint())
		return
	}
	rc, _ := RequestContextFromContext(ctx)
	report, err := h.builder.BuildError(rc, key, skip+1)
	if err != nil {
		h.logger.Warn("artemis: report dropped", "kind", ReportKindError, "err", err)
		return
	}
	h.write(ctx, report)
}

func (h *Handle) write(ctx context.Context, report Report) {
	if err := h.sink.Write(ctx, report); err != nil {
		h.logger.Warn("artemis: write failed", "kind", report.Kind, "id", report.ID, "err", err)
		return
	}
	h.logger.Debug("artemis: report written", "kind", report.Kind, "id", report.ID, "level", report.Level)
}

// contain stops a panic raised inside the pipeline from reaching the host.
func (h *Handle) contain(kind ReportKind) {
	if r := recover(); r != nil {
		h.logger.Error("artemis: panic while reporting", "kind", kind, "panic", formatRecovered(r))
	}
}

// Recover reports a panic as an exception and returns the recovered value.
// It must be deferred directly:
//
//	func handler(ctx context.Context) {
//	    defer h.Recover(ctx)
//	    // code that might panic
//	}
//
// When h is inert or the Exceptions hook is off, the panic continues as if
// no handler had been deferred.
func (h *Handle) Recover(ctx context.Context) any {
	r := recover()
	if r == nil {
		return nil
	}
	return h.recovered(ctx, r)
}

func (h *Handle) recovered(ctx context.Context, r any) any {
	if !h.Registered() || !h.hooks.Exceptions {
		panic(r)
	}
	h.CaptureException(ctx, PanicException(r))
	return r
}

// Shutdown runs the Fatal hook, unregisters h and closes its sink. When the
// last observed error is fatal or a parse error it is reported through the
// normal pipeline, duplicate suppression included; any other last error is
// ignored. Calling Shutdown again does nothing.
func (h *Handle) Shutdown(ctx context.Context) {
	if h == nil {
		return
	}
	h.mu.Lock()
	if !h.registered {
		h.mu.Unlock()
		return
	}
	last := h.lastError
	h.mu.Unlock()

	if h.hooks.Fatal && last != nil && last.Kind.IsFatal() {
		h.captureError(ctx, *last, 0)
	}

	h.mu.Lock()
	h.registered = false
	h.mu.Unlock()
	uninstallIf(h)

	if err := h.sink.Flush(ctx); err != nil {
		h.logger.Warn("artemis: flush failed", "err", err)
	}
	if err := h.sink.Close(); err != nil {
		h.logger.Warn("artemis: close failed", "err", err)
	}
}
