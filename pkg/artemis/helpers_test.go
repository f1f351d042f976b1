package artemis

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
)

// testSink captures reports for verification in tests.
type testSink struct {
	mu       sync.Mutex
	reports  []Report
	writeErr error
	closed   bool
}

func (s *testSink) Write(ctx context.Context, report Report) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

func (s *testSink) Flush(ctx context.Context) error {
	return nil
}

func (s *testSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *testSink) getReports() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Report, len(s.reports))
	copy(result, s.reports)
	return result
}

// fakeRequest is a RequestContext with fixed answers.
type fakeRequest struct {
	method  string
	url     string
	remote  string
	headers map[string][]string
	query   Value
	parsed  Value
	raw     string
	session Value
}

func (f *fakeRequest) Method() string               { return f.method }
func (f *fakeRequest) URL() string                  { return f.url }
func (f *fakeRequest) RemoteIP() string             { return f.remote }
func (f *fakeRequest) Headers() map[string][]string { return f.headers }
func (f *fakeRequest) QueryParams() Value           { return f.query }
func (f *fakeRequest) ParsedBody() Value            { return f.parsed }
func (f *fakeRequest) RawBody() string              { return f.raw }
func (f *fakeRequest) Session() Value               { return f.session }

func enabledConfig(dir string) Config {
	return Config{Enabled: true, LogDir: dir, HiddenFields: []string{"password"}}
}

// readReports decodes every report file in dir, sorted by name.
func readReports(t *testing.T, dir string) map[string]map[string]any {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	out := make(map[string]map[string]any, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("decode %s: %v\n%s", name, err, data)
		}
		out[name] = doc
	}
	return out
}

func mustJSON(t *testing.T, v Value) string {
	t.Helper()
	b, err := v.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

// nested builds a value with the given depth of maps.
func nested(depth int) Value {
	v := String("leaf")
	for i := 1; i < depth; i++ {
		v = Object(NewMap().Set("k", v))
	}
	return v
}
