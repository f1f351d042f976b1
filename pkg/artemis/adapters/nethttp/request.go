// Package nethttp adapts net/http requests to artemis.RequestContext and
// provides middleware reporting handler panics.
package nethttp

import (
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/strongdm/artemis-observe/pkg/artemis"
)

// DefaultMaxBody bounds how much of a request body is recorded for reports.
const DefaultMaxBody = 64 << 10

// RequestOption configures a Request.
type RequestOption func(*requestConfig)

type requestConfig struct {
	maxBody int64
	session func(*http.Request) artemis.Value
}

// WithMaxBody sets how many body bytes are recorded (default DefaultMaxBody).
// Zero records nothing, so every non-empty body is reported as truncated.
func WithMaxBody(n int64) RequestOption {
	return func(c *requestConfig) {
		if n >= 0 {
			c.maxBody = n
		}
	}
}

// WithSession supplies session data for reports. The function is called
// lazily, only when a report is built.
func WithSession(fn func(*http.Request) artemis.Value) RequestOption {
	return func(c *requestConfig) {
		c.session = fn
	}
}

// Request implements artemis.RequestContext over an *http.Request.
type Request struct {
	r       *http.Request
	body    *bodyRecorder
	session func(*http.Request) artemis.Value
}

// NewRequest wraps r.Body so that the bytes the handler reads, up to the
// configured limit, are recorded for reports. Nothing is read ahead of the
// handler. A body the handler did not read to the end, or that exceeded the
// limit, is reported as truncated.
func NewRequest(r *http.Request, opts ...RequestOption) *Request {
	cfg := &requestConfig{maxBody: DefaultMaxBody}
	for _, opt := range opts {
		opt(cfg)
	}

	req := &Request{r: r, session: cfg.session}
	if r.Body != nil && r.Body != http.NoBody {
		req.body = &bodyRecorder{rc: r.Body, limit: cfg.maxBody, size: r.ContentLength}
		r.Body = req.body
	}
	return req
}

// bodyRecorder keeps a copy of what is read through it.
type bodyRecorder struct {
	rc    io.ReadCloser
	limit int64
	size  int64 // declared length, -1 when unknown

	mu   sync.Mutex
	buf  []byte
	over bool
	eof  bool
}

func (b *bodyRecorder) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > 0 {
		room := b.limit - int64(len(b.buf))
		if int64(n) > room {
			b.buf = append(b.buf, p[:max(room, 0)]...)
			b.over = true
		} else {
			b.buf = append(b.buf, p[:n]...)
		}
	}
	if err == io.EOF {
		b.eof = true
	}
	return n, err
}

func (b *bodyRecorder) Close() error {
	return b.rc.Close()
}

// recorded returns the bytes seen so far and whether they are the whole body.
func (b *bodyRecorder) recorded() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	complete := !b.over && (b.eof || (b.size >= 0 && int64(len(b.buf)) == b.size))
	return append([]byte(nil), b.buf...), complete
}

func (q *Request) Method() string {
	return q.r.Method
}

// URL reconstructs the absolute URL, honoring X-Forwarded-Proto and
// X-Forwarded-Host set by proxies.
func (q *Request) URL() string {
	scheme := "http"
	if proto := q.r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(proto)
	} else if q.r.TLS != nil {
		scheme = "https"
	}
	host := q.r.Host
	if fwd := q.r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	if host == "" {
		host = "unknown"
	}
	return scheme + "://" + host + q.r.URL.RequestURI()
}

// RemoteIP returns the host part of RemoteAddr.
func (q *Request) RemoteIP() string {
	host, _, err := net.SplitHostPort(q.r.RemoteAddr)
	if err != nil {
		return q.r.RemoteAddr
	}
	return host
}

func (q *Request) Headers() map[string][]string {
	return q.r.Header
}

func (q *Request) QueryParams() artemis.Value {
	return artemis.ParseQuery(q.r.URL.RawQuery)
}

// ParsedBody decodes JSON and urlencoded form bodies. Other content types,
// truncated bodies and bodies that fail to decode yield null.
func (q *Request) ParsedBody() artemis.Value {
	body, complete := q.recorded()
	if !complete || len(body) == 0 {
		return artemis.Null()
	}
	mediaType, _, _ := mime.ParseMediaType(q.r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		v, err := artemis.ParseJSON(body)
		if err != nil {
			return artemis.Null()
		}
		return v
	case mediaType == "application/x-www-form-urlencoded":
		return artemis.ParseQuery(string(body))
	}
	return artemis.Null()
}

// RawBody returns the recorded part of the body.
func (q *Request) RawBody() string {
	body, _ := q.recorded()
	return string(body)
}

// BodyTruncated reports whether the handler left part of the body unread or
// read past the recording limit.
func (q *Request) BodyTruncated() bool {
	_, complete := q.recorded()
	return !complete
}

func (q *Request) recorded() ([]byte, bool) {
	if q.body == nil {
		return nil, true
	}
	return q.body.recorded()
}

func (q *Request) Session() artemis.Value {
	if q.session == nil {
		return artemis.Null()
	}
	return q.session(q.r)
}
