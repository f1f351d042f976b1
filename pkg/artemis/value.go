// value.go implements the closed value model used for request data, extra
// payloads and the persisted report document.

package artemis

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
)

// ValueKind identifies which variant a Value holds.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindMap
	KindSeq
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindMap:
		return "map"
	case KindSeq:
		return "seq"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a JSON-shaped tagged variant: null, bool, number, string,
// ordered map or sequence. The zero Value is null.
type Value struct {
	kind ValueKind
	b    bool
	s    string // string payload, or the literal of a number
	m    *Map
	seq  []Value
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns a numeric Value.
func Int(n int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(n, 10)} }

// Float returns a numeric Value. NaN and infinities have no JSON form and
// are reported as ErrUnsupportedValue by FromAny; Float itself maps them to null.
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindNumber, s: strconv.FormatFloat(f, 'f', -1, 64)}
}

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Seq returns a sequence Value.
func Seq(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindSeq, seq: items}
}

// Object wraps m as a Value. A nil map becomes an empty one.
func Object(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

// numberLiteral builds a number from an already validated JSON literal.
func numberLiteral(lit string) Value { return Value{kind: KindNumber, s: lit} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Number returns the numeric literal and whether v is a number.
func (v Value) Number() (string, bool) { return v.s, v.kind == KindNumber }

// Truth returns the boolean payload and whether v is a bool.
func (v Value) Truth() (bool, bool) { return v.b, v.kind == KindBool }

// Map returns the map payload, or nil when v is not a map.
func (v Value) Map() *Map {
	if v.kind != KindMap {
		return nil
	}
	return v.m
}

// Items returns the elements of a sequence, or nil when v is not one.
func (v Value) Items() []Value {
	if v.kind != KindSeq {
		return nil
	}
	return v.seq
}

// Empty reports whether v is null, an empty string, an empty map or an
// empty sequence.
func (v Value) Empty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == ""
	case KindMap:
		return v.m.Len() == 0
	case KindSeq:
		return len(v.seq) == 0
	}
	return false
}

// Depth returns the nesting depth of v. Scalars have depth 1, containers
// add one level to their deepest child.
func (v Value) Depth() int {
	switch v.kind {
	case KindMap:
		deepest := 0
		for _, k := range v.m.keys {
			if d := v.m.vals[k].Depth(); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	case KindSeq:
		deepest := 0
		for _, item := range v.seq {
			if d := item.Depth(); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	}
	return 1
}

// Interface converts v to plain Go values: nil, bool, float64, string,
// map[string]any and []any. Key order is lost.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		f, _ := strconv.ParseFloat(v.s, 64)
		return f
	case KindString:
		return v.s
	case KindMap:
		out := make(map[string]any, v.m.Len())
		for _, k := range v.m.keys {
			out[k] = v.m.vals[k].Interface()
		}
		return out
	case KindSeq:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Interface()
		}
		return out
	}
	return nil
}

// MarshalJSON encodes v preserving map key order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(v.s)
	case KindString:
		return encodeString(buf, v.s)
	case KindMap:
		return v.m.encode(buf)
	case KindSeq:
		buf.WriteByte('[')
		for i, item := range v.seq {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}
	return nil
}

// encodeString quotes s without HTML escaping, so URLs and markup stay
// readable in report files.
func encodeString(buf *bytes.Buffer, s string) error {
	quoted, err := json.MarshalNoEscape(s)
	if err != nil {
		return err
	}
	buf.Write(quoted)
	return nil
}

// Map is an insertion-ordered string-keyed map of Values.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{vals: make(map[string]Value)}
}

// Set stores v under key, keeping the original position of an existing key.
// It returns m so calls can be chained.
func (m *Map) Set(key string, v Value) *Map {
	if m.vals == nil {
		m.vals = make(map[string]Value)
	}
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
	return m
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone returns a deep copy of m.
func (m *Map) Clone() *Map {
	out := NewMap()
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out.Set(k, m.vals[k].clone())
	}
	return out
}

func (v Value) clone() Value {
	switch v.kind {
	case KindMap:
		return Object(v.m.Clone())
	case KindSeq:
		items := make([]Value, len(v.seq))
		for i, item := range v.seq {
			items[i] = item.clone()
		}
		return Seq(items...)
	}
	return v
}

// MarshalJSON encodes m preserving key order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := m.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Map) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	if m != nil {
		for i, k := range m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := m.vals[k].encode(buf); err != nil {
				return err
			}
		}
	}
	buf.WriteByte('}')
	return nil
}

// MaxConvertDepth bounds FromAny recursion.
const MaxConvertDepth = 64

// FromAny converts a plain Go value into a Value. Supported inputs are nil,
// bool, integer and float kinds, strings, Value, *Map, slices and arrays,
// and maps keyed by strings. Go maps have no order, so their keys are sorted.
func FromAny(x any) (Value, error) {
	return fromAny(x, 0)
}

func fromAny(x any, depth int) (Value, error) {
	if depth > MaxConvertDepth {
		return Value{}, ErrTooDeep
	}
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Map:
		return Object(t), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return numberLiteral(string(t)), nil
	case float64:
		return floatValue(t)
	case float32:
		return floatValue(float64(t))
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case int32:
		return Int(int64(t)), nil
	case uint64:
		return numberLiteral(strconv.FormatUint(t, 10)), nil
	case []byte:
		return String(string(t)), nil
	case error:
		return String(t.Error()), nil
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return numberLiteral(strconv.FormatUint(rv.Uint(), 10)), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return fromAny(rv.Elem().Interface(), depth+1)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null(), nil
		}
		items := make([]Value, rv.Len())
		for i := range items {
			item, err := fromAny(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return Value{}, err
			}
			items[i] = item
		}
		return Seq(items...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("%w: map key %s", ErrUnsupportedValue, rv.Type().Key())
		}
		if rv.IsNil() {
			return Null(), nil
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			item, err := fromAny(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface(), depth+1)
			if err != nil {
				return Value{}, err
			}
			m.Set(k, item)
		}
		return Object(m), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Float32, reflect.Float64:
		return floatValue(rv.Float())
	}
	return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, x)
}

func floatValue(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: %v", ErrUnsupportedValue, f)
	}
	return Float(f), nil
}

// MustValue is FromAny for literals known to convert, mostly in tests and
// examples. It panics on error.
func MustValue(x any) Value {
	v, err := FromAny(x)
	if err != nil {
		panic(err)
	}
	return v
}
