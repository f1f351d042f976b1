// redact.go masks configured sensitive keys inside nested request data.

package artemis

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultMask replaces the value of every hidden key.
const DefaultMask = "*"

// MaxRedactDepth bounds Redact recursion.
const MaxRedactDepth = 64

// RedactionPolicy names the keys whose values are masked. It is built once
// from Config and never mutated.
type RedactionPolicy struct {
	hidden map[string]struct{}
	mask   string
}

// NewRedactionPolicy returns a policy masking keys with mask. An empty mask
// falls back to DefaultMask.
func NewRedactionPolicy(mask string, hiddenKeys ...string) RedactionPolicy {
	if mask == "" {
		mask = DefaultMask
	}
	hidden := make(map[string]struct{}, len(hiddenKeys))
	for _, k := range hiddenKeys {
		hidden[k] = struct{}{}
	}
	return RedactionPolicy{hidden: hidden, mask: mask}
}

// Hides reports whether key is masked. Matching is exact and case-sensitive.
func (p RedactionPolicy) Hides(key string) bool {
	_, ok := p.hidden[key]
	return ok
}

func (p RedactionPolicy) Mask() string { return p.mask }

// Redactor applies a RedactionPolicy to Values.
type Redactor struct {
	policy RedactionPolicy
}

func NewRedactor(policy RedactionPolicy) *Redactor {
	return &Redactor{policy: policy}
}

// Redact returns a copy of v in which every map entry whose key is hidden
// holds the mask string. Sequences are walked element-wise; scalars pass
// through. A string holding a JSON object or array is decoded first;
// anything else that fails to decode is kept as the original string.
func (r *Redactor) Redact(v Value) (Value, error) {
	if s, ok := v.Str(); ok && looksLikeJSON(s) {
		if decoded, err := ParseJSON([]byte(s)); err == nil {
			v = decoded
		}
	}
	return r.redact(v, 0)
}

func (r *Redactor) redact(v Value, depth int) (Value, error) {
	if depth > MaxRedactDepth {
		return Value{}, ErrTooDeep
	}
	switch v.Kind() {
	case KindMap:
		src := v.Map()
		out := NewMap()
		for _, k := range src.keys {
			if r.policy.Hides(k) {
				out.Set(k, String(r.policy.mask))
				continue
			}
			child, err := r.redact(src.vals[k], depth+1)
			if err != nil {
				return Value{}, err
			}
			out.Set(k, child)
		}
		return Object(out), nil
	case KindSeq:
		items := make([]Value, len(v.seq))
		for i, item := range v.seq {
			child, err := r.redact(item, depth+1)
			if err != nil {
				return Value{}, err
			}
			items[i] = child
		}
		return Seq(items...), nil
	}
	return v, nil
}

// RedactURL rewrites the query string of rawURL with hidden parameters
// masked. The rest of the URL, and the whole URL when nothing is hidden, is
// left byte-for-byte intact.
func (r *Redactor) RedactURL(rawURL string) (string, error) {
	start, end := queryBounds(rawURL)
	if start == end {
		return rawURL, nil
	}
	params := ParseQuery(rawURL[start:end])
	redacted, err := r.redact(params, 0)
	if err != nil {
		return "", err
	}
	if !r.masked(params) {
		return rawURL, nil
	}
	return rawURL[:start] + EncodeQuery(redacted.Map()) + rawURL[end:], nil
}

// masked reports whether any map key in v, at any depth, is hidden.
func (r *Redactor) masked(v Value) bool {
	switch v.Kind() {
	case KindMap:
		for _, k := range v.Map().Keys() {
			child, _ := v.Map().Get(k)
			if r.policy.Hides(k) || r.masked(child) {
				return true
			}
		}
	case KindSeq:
		for _, item := range v.Items() {
			if r.masked(item) {
				return true
			}
		}
	}
	return false
}

// queryBounds locates the text between the first '?' and the fragment.
// start == end when there is no query.
func queryBounds(rawURL string) (start, end int) {
	i := strings.IndexByte(rawURL, '?')
	if i < 0 {
		return 0, 0
	}
	start, end = i+1, len(rawURL)
	if j := strings.IndexByte(rawURL[start:], '#'); j >= 0 {
		end = start + j
	}
	return start, end
}

// ParseQuery decodes a query string into an ordered map. Keys in bracket
// form nest: "a[b]=1" yields {"a":{"b":"1"}} and "a[]=1&a[]=2" yields
// {"a":["1","2"]}. Repeated plain keys collect their values into a sequence
// in order of appearance. Pairs that fail to unescape are kept raw.
func ParseQuery(query string) Value {
	m := NewMap()
	for _, pair := range strings.FieldsFunc(query, func(r rune) bool { return r == '&' || r == ';' }) {
		key, val, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(val); err == nil {
			val = v
		}
		if key == "" {
			continue
		}
		base, path := splitQueryKey(key)
		prev, ok := m.Get(base)
		m.Set(base, insertQuery(prev, ok, path, String(val)))
	}
	return Object(m)
}

// splitQueryKey splits "a[b][]" into "a" and ["b", ""]. Text after the last
// closing bracket is dropped. Keys without a leading name stay whole.
func splitQueryKey(key string) (string, []string) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.Contains(key[open:], "]") {
		return key, nil
	}
	base, rest := key[:open], key[open:]
	var path []string
	for strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			break
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	return base, path
}

// insertQuery places val at path below cur. An empty path segment appends
// to a sequence; a named one descends into a map.
func insertQuery(cur Value, exists bool, path []string, val Value) Value {
	if len(path) == 0 {
		switch {
		case !exists:
			return val
		case cur.Kind() == KindSeq:
			return Seq(append(cur.Items(), val)...)
		}
		return Seq(cur, val)
	}
	seg, rest := path[0], path[1:]
	if seg == "" && cur.Kind() != KindMap {
		var items []Value
		if cur.Kind() == KindSeq {
			items = cur.Items()
		} else if exists {
			items = []Value{cur}
		}
		return Seq(append(items, insertQuery(Value{}, false, rest, val))...)
	}
	m := asArray(cur)
	if seg == "" {
		seg = strconv.Itoa(nextIndex(m))
	}
	child, ok := m.Get(seg)
	return Object(m.Set(seg, insertQuery(child, ok, rest, val)))
}

// EncodeQuery serializes m as a query string in key order. Sequences repeat
// their key, nested maps use bracket notation and nulls are skipped.
func EncodeQuery(m *Map) string {
	var parts []string
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		parts = appendQuery(parts, queryEscape(k), v)
	}
	return strings.Join(parts, "&")
}

func appendQuery(parts []string, key string, v Value) []string {
	switch v.Kind() {
	case KindNull:
		return parts
	case KindSeq:
		for _, item := range v.Items() {
			parts = appendQuery(parts, key, item)
		}
		return parts
	case KindMap:
		for _, k := range v.Map().Keys() {
			child, _ := v.Map().Get(k)
			parts = appendQuery(parts, key+queryEscape("["+k+"]"), child)
		}
		return parts
	case KindBool:
		if b, _ := v.Truth(); b {
			return append(parts, key+"=1")
		}
		return append(parts, key+"=0")
	}
	return append(parts, key+"="+queryEscape(v.s))
}

// queryEscape is url.QueryEscape leaving '*' readable, so masked values stay
// recognizable in the stored URL.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "%2A", "*")
}
