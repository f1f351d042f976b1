// global.go holds the process-wide handle used by the package-level capture
// functions.
//
// Install replaces the current handle; it never stacks handles, so a signal
// is reported at most once. Shutdown of the installed handle clears the cell.

package artemis

import (
	"context"
	"sync"
)

var (
	globalMu sync.RWMutex
	current  *Handle
)

// Setup initializes a handle and installs it. On error nothing is installed
// and the previously installed handle, if any, stays in place.
func Setup(cfg Config, hooks Hooks, opts ...Option) (*Handle, error) {
	h, err := Initialize(cfg, hooks, opts...)
	if err != nil {
		return nil, err
	}
	Install(h)
	return h, nil
}

// Install makes h the process-wide handle, replacing any previous one.
// Installing the same handle twice has no further effect.
func Install(h *Handle) {
	globalMu.Lock()
	defer globalMu.Unlock()
	current = h
}

// Uninstall clears the process-wide handle without shutting it down.
func Uninstall() {
	Install(nil)
}

// Current returns the installed handle, or nil.
func Current() *Handle {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return current
}

func uninstallIf(h *Handle) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if current == h {
		current = nil
	}
}

// CaptureException reports err through the installed handle.
func CaptureException(ctx context.Context, err error, opts ...CaptureOption) {
	Current().CaptureException(ctx, err, opts...)
}

// CaptureError reports an error signal through the installed handle.
func CaptureError(ctx context.Context, kind ErrorKind, msg, file string, line int) {
	Current().CaptureError(ctx, kind, msg, file, line)
}

// Trigger raises an error signal located at the caller through the
// installed handle.
func Trigger(ctx context.Context, kind ErrorKind, msg string) {
	Current().trigger(ctx, kind, msg, 1)
}

// Recover is Handle.Recover for the installed handle. It must be deferred
// directly.
func Recover(ctx context.Context) any {
	r := recover()
	if r == nil {
		return nil
	}
	return Current().recovered(ctx, r)
}

// Shutdown shuts down the installed handle.
func Shutdown(ctx context.Context) {
	Current().Shutdown(ctx)
}
