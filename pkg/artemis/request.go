// request.go defines the request capability consumed by reports and the
// redacted snapshot built from it.

package artemis

import (
	"context"
	"sort"
	"strings"
)

// RequestContext exposes the request being handled when a signal is raised.
// Each hosting environment supplies its own implementation; see the nethttp
// adapter for net/http.
type RequestContext interface {
	// Method returns the request method, or "" when unknown.
	Method() string

	// URL returns the absolute request URL including its query string.
	URL() string

	// RemoteIP returns the direct peer address, or "" when unknown.
	RemoteIP() string

	// Headers returns the inbound headers.
	Headers() map[string][]string

	// QueryParams returns the decoded query parameters.
	QueryParams() Value

	// ParsedBody returns the decoded request body, or null when the body
	// was not decoded.
	ParsedBody() Value

	// RawBody returns the undecoded request body.
	RawBody() string

	// Session returns session data, or null when there is no session.
	Session() Value
}

// PartialBody is implemented by RequestContexts that may hold only part of
// the request body.
type PartialBody interface {
	// BodyTruncated reports whether RawBody is missing part of the body.
	BodyTruncated() bool
}

// TruncatedBody is stored as BODY in place of a partially captured body.
const TruncatedBody = "[truncated]"

type requestContextKey struct{}

// WithRequestContext returns a context carrying rc. Capture calls made with
// the returned context include a snapshot of rc in their reports.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFromContext extracts the RequestContext attached to ctx.
func RequestContextFromContext(ctx context.Context) (RequestContext, bool) {
	if ctx == nil {
		return nil, false
	}
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok && rc != nil
}

// RequestSnapshot is the redacted view of a request stored in a report.
// Exactly one of GET and BODY is set.
type RequestSnapshot struct {
	URL     string
	UserIP  string
	Headers *Map
	Method  string
	GET     Value
	BODY    Value
	Session Value

	hasGET  bool
	hasBODY bool
}

// Document renders s in report form.
func (s *RequestSnapshot) Document() Value {
	m := NewMap().
		Set("url", String(s.URL)).
		Set("user_ip", optionalString(s.UserIP)).
		Set("headers", Object(s.Headers)).
		Set("method", optionalString(s.Method))
	if s.hasGET {
		m.Set("GET", s.GET)
	}
	if s.hasBODY {
		m.Set("BODY", s.BODY)
	}
	if !s.Session.Empty() {
		m.Set("session", s.Session)
	}
	return Object(m)
}

func optionalString(s string) Value {
	if s == "" {
		return Null()
	}
	return String(s)
}

// SnapshotRequest builds the redacted snapshot of rc.
func SnapshotRequest(rc RequestContext, r *Redactor) (*RequestSnapshot, error) {
	url, err := r.RedactURL(rc.URL())
	if err != nil {
		return nil, err
	}
	headers := rc.Headers()
	s := &RequestSnapshot{
		URL:     url,
		UserIP:  resolveUserIP(headers, rc.RemoteIP()),
		Headers: normalizeHeaders(headers),
		Method:  rc.Method(),
	}

	if sess := rc.Session(); !sess.Empty() {
		if s.Session, err = r.Redact(sess); err != nil {
			return nil, err
		}
	}

	if strings.EqualFold(s.Method, "GET") {
		s.hasGET = true
		if s.GET, err = r.Redact(rc.QueryParams()); err != nil {
			return nil, err
		}
		return s, nil
	}

	s.hasBODY = true
	if pb, ok := rc.(PartialBody); ok && pb.BodyTruncated() {
		s.BODY = String(TruncatedBody)
		return s, nil
	}
	body := rc.ParsedBody()
	if body.IsNull() {
		body = String(rc.RawBody())
	}
	if s.BODY, err = r.Redact(body); err != nil {
		return nil, err
	}
	return s, nil
}

// resolveUserIP prefers the first X-Forwarded-For entry, then X-Real-Ip,
// then the peer address.
func resolveUserIP(headers map[string][]string, remote string) string {
	if fwd := headerValue(headers, "X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if realIP := headerValue(headers, "X-Real-Ip"); realIP != "" {
		return realIP
	}
	return remote
}

func headerValue(headers map[string][]string, name string) string {
	for k, vals := range headers {
		if normalizeHeaderName(k) == name && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

// normalizeHeaders title-cases header names with hyphens between words.
// Single values are stored as strings, repeated ones as sequences. Names
// are sorted since the input map has no order.
func normalizeHeaders(headers map[string][]string) *Map {
	unordered := make(map[string][]string, len(headers))
	for k, vals := range headers {
		name := normalizeHeaderName(k)
		unordered[name] = append(unordered[name], vals...)
	}
	names := make([]string, 0, len(unordered))
	for k := range unordered {
		names = append(names, k)
	}
	sort.Strings(names)
	out := NewMap()
	for _, k := range names {
		vals := unordered[k]
		if len(vals) == 1 {
			out.Set(k, String(vals[0]))
			continue
		}
		items := make([]Value, len(vals))
		for i, v := range vals {
			items[i] = String(v)
		}
		out.Set(k, Seq(items...))
	}
	return out
}

// normalizeHeaderName turns "HTTP_X_FORWARDED_FOR" style or any-case names
// into "X-Forwarded-For". A leading HTTP_ prefix is dropped.
func normalizeHeaderName(name string) string {
	if len(name) > 5 && strings.EqualFold(name[:5], "HTTP_") {
		name = name[5:]
	}
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, "-")
}
