// Package artemis provides in-process error and exception capture for
// request-handling servers.
//
// artemis turns panics, exceptions and raised error signals into structured
// reports, masks configured sensitive fields in the request data embedded in
// each report, and writes every report as a JSON file for offline inspection.
// No external reporting service is involved.
//
// # Core Components
//
// The library is organized around these concepts:
//
//   - Handle: an initialized module receiving signals; nil when disabled
//   - Report: the record persisted for one signal (trace, request, server)
//   - TraceNode: frames plus classification, chained through causes
//   - Redactor: masks hidden keys at any depth of request data
//   - Deduplicator: drops repeats of an identical error signal
//   - Sink: destination for reports (file by default; stderr, multi, noop, metrics)
//   - RequestContext: the host's view of the current request
//
// # Quick Start
//
//	h, err := artemis.Initialize(cfg, artemis.AllHooks())
//	if err != nil {
//	    // run without error capture
//	}
//	defer h.Shutdown(ctx)
//
//	func handler(ctx context.Context) {
//	    defer h.Recover(ctx)
//	    // code that might panic
//	}
//
// For net/http servers the nethttp adapter attaches the request and
// recovers panics:
//
//	mux := nethttp.Middleware(h)(router)
//
// # Design Principles
//
//   - Capture never fails the host: all pipeline errors are swallowed and logged
//   - Reports are written once, synchronously, one file per signal
//   - Request data is redacted before it is ever serialized
package artemis
