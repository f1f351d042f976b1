// report.go assembles complete report records from signals.

package artemis

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ReportKind distinguishes exception reports from error-signal reports. It
// also prefixes the persisted file name.
type ReportKind string

const (
	ReportKindException ReportKind = "exception"
	ReportKindError     ReportKind = "error"
)

// Report is the structured record persisted for one signal.
type Report struct {
	// ID is a unique identifier for this report (UUID).
	ID string

	Kind ReportKind

	// Time is the capture time in fractional Unix seconds. The sink reuses it
	// in the file name.
	Time float64

	// APIKey is copied from Config when non-empty.
	APIKey string

	Level string

	// Fingerprint groups error-signal reports with the same DedupKey.
	Fingerprint string

	Trace *TraceNode

	// Request is nil when the signal was raised outside a request.
	Request *RequestSnapshot

	Server ServerSnapshot

	// Payload is merged recursively into the rendered document.
	Payload *Map
}

// FormatTime renders a report time the way it appears in documents and
// file names.
func FormatTime(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

// Document renders r as the persisted JSON-shaped document. The user entry
// is always null: user resolution is left to hosts.
func (r Report) Document() Value {
	m := NewMap().Set("time", numberLiteral(FormatTime(r.Time)))
	if r.APIKey != "" {
		m.Set("api_key", String(r.APIKey))
	}
	if r.ID != "" {
		m.Set("uuid", String(r.ID))
	}
	if r.Level != "" {
		m.Set("level", String(r.Level))
	}
	if r.Fingerprint != "" {
		m.Set("fingerprint", String(r.Fingerprint))
	}
	body := NewMap()
	if r.Trace != nil {
		body.Set("trace", r.Trace.Document())
	}
	m.Set("body", Object(body))
	if r.Request != nil {
		m.Set("request", r.Request.Document())
	} else {
		m.Set("request", Null())
	}
	m.Set("server", r.Server.document())
	m.Set("user", Null())

	if r.Payload.Len() > 0 {
		m = MergeRecursive(m, r.Payload)
	}
	return Object(m)
}

// MergeRecursive merges src into a copy of dst the way PHP's
// array_merge_recursive does. Maps act as keyed arrays and sequences as
// index-keyed ones. Index keys from src are appended after dst's highest
// index. When a named key exists on both sides the existing value is folded
// into an array (null becomes empty, a scalar becomes element 0) and src's
// value is merged into it, or appended when it is a scalar. A result whose
// keys are exactly 0..n-1 is stored as a sequence.
func MergeRecursive(dst, src *Map) *Map {
	out := dst.Clone()
	mergeArrays(out, src)
	return out
}

func mergeArrays(dst, src *Map) {
	next := nextIndex(dst)
	for _, k := range src.Keys() {
		incoming, _ := src.Get(k)
		if isIndexKey(k) {
			dst.Set(strconv.Itoa(next), incoming.clone())
			next++
			continue
		}
		existing, ok := dst.Get(k)
		if !ok {
			dst.Set(k, incoming.clone())
			continue
		}
		folded := asArray(existing)
		if incoming.Kind() == KindMap || incoming.Kind() == KindSeq {
			mergeArrays(folded, asArray(incoming))
		} else {
			folded.Set(strconv.Itoa(nextIndex(folded)), incoming.clone())
		}
		dst.Set(k, fromArray(folded))
	}
}

// asArray returns v as a keyed array.
func asArray(v Value) *Map {
	switch v.Kind() {
	case KindNull:
		return NewMap()
	case KindMap:
		return v.Map().Clone()
	case KindSeq:
		m := NewMap()
		for i, item := range v.Items() {
			m.Set(strconv.Itoa(i), item)
		}
		return m
	}
	return NewMap().Set("0", v)
}

// fromArray stores m as a sequence when its keys are 0..n-1 in order.
func fromArray(m *Map) Value {
	keys := m.Keys()
	for i, k := range keys {
		if k != strconv.Itoa(i) {
			return Object(m)
		}
	}
	items := make([]Value, len(keys))
	for i, k := range keys {
		items[i], _ = m.Get(k)
	}
	return Seq(items...)
}

func nextIndex(m *Map) int {
	next := 0
	for _, k := range m.Keys() {
		if isIndexKey(k) {
			if n, _ := strconv.Atoi(k); n >= next {
				next = n + 1
			}
		}
	}
	return next
}

// isIndexKey reports whether k is a canonical non-negative integer.
func isIndexKey(k string) bool {
	n, err := strconv.Atoi(k)
	return err == nil && n >= 0 && strconv.Itoa(n) == k
}

// ReportBuilder turns signals into Reports.
type ReportBuilder struct {
	apiKey   string
	legacy   bool
	redactor *Redactor
	now      func() time.Time
	server   ServerSnapshot

	mu   sync.Mutex
	last int64 // microseconds of the previous report
}

// NewReportBuilder returns a builder for cfg. now and hostname come from the
// handle's options.
func NewReportBuilder(cfg Config, now func() time.Time, hostname string) *ReportBuilder {
	if now == nil {
		now = time.Now
	}
	return &ReportBuilder{
		apiKey:   cfg.APIKey,
		legacy:   cfg.LegacyParseSeverity,
		redactor: NewRedactor(cfg.Policy()),
		now:      now,
		server:   ServerSnapshot{Host: hostname},
	}
}

// Classify applies the builder's severity table.
func (b *ReportBuilder) Classify(kind ErrorKind) Severity {
	if b.legacy {
		return ClassifyLegacy(kind)
	}
	return Classify(kind)
}

// BuildException builds the report for an exception signal. rc may be nil.
func (b *ReportBuilder) BuildException(rc RequestContext, err error, extra Value, payload *Map) (Report, error) {
	r := b.base(ReportKindException)
	r.Level = LevelError
	r.Trace = BuildExceptionTrace(err, extra)
	r.Payload = payload
	return b.finish(r, rc)
}

// BuildError builds the report for an error signal. skip counts caller
// frames to drop from the synthesized trace.
func (b *ReportBuilder) BuildError(rc RequestContext, key DedupKey, skip int) (Report, error) {
	sev := b.Classify(key.Kind)
	r := b.base(ReportKindError)
	r.Level = sev.Level
	r.Fingerprint = key.Fingerprint()
	r.Trace = BuildErrorTrace(key, sev, skip+1)
	return b.finish(r, rc)
}

func (b *ReportBuilder) base(kind ReportKind) Report {
	return Report{
		ID:     uuid.NewString(),
		Kind:   kind,
		Time:   float64(b.tick()) / 1e6,
		APIKey: b.apiKey,
		Server: b.server,
	}
}

// tick returns the current time in microseconds, strictly increasing across
// calls so report file names never collide within a process.
func (b *ReportBuilder) tick() int64 {
	us := b.now().UnixMicro()
	b.mu.Lock()
	defer b.mu.Unlock()
	if us <= b.last {
		us = b.last + 1
	}
	b.last = us
	return us
}

func (b *ReportBuilder) finish(r Report, rc RequestContext) (Report, error) {
	if rc != nil {
		snap, err := SnapshotRequest(rc, b.redactor)
		if err != nil {
			return Report{}, fmt.Errorf("%w: request: %v", ErrSerialization, err)
		}
		r.Request = snap
	}
	if d := r.Document().Depth(); d > MaxReportDepth {
		return Report{}, fmt.Errorf("%w: depth %d exceeds %d", ErrSerialization, d, MaxReportDepth)
	}
	return r, nil
}
