// json.go decodes JSON text into Values and renders report documents.

package artemis

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// ParseJSON decodes a JSON document into a Value, keeping object key order.
// Documents nesting deeper than MaxConvertDepth fail with ErrTooDeep.
func ParseJSON(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return Value{}, fmt.Errorf("artemis: invalid JSON")
	}
	return fromResult(gjson.ParseBytes(data), 0)
}

func fromResult(r gjson.Result, depth int) (Value, error) {
	if depth > MaxConvertDepth {
		return Value{}, ErrTooDeep
	}
	switch r.Type {
	case gjson.Null:
		return Null(), nil
	case gjson.False:
		return Bool(false), nil
	case gjson.True:
		return Bool(true), nil
	case gjson.Number:
		return numberLiteral(r.Raw), nil
	case gjson.String:
		return String(r.Str), nil
	}

	var err error
	if r.IsArray() {
		items := []Value{}
		r.ForEach(func(_, item gjson.Result) bool {
			var v Value
			v, err = fromResult(item, depth+1)
			items = append(items, v)
			return err == nil
		})
		if err != nil {
			return Value{}, err
		}
		return Seq(items...), nil
	}

	m := NewMap()
	r.ForEach(func(key, item gjson.Result) bool {
		var v Value
		v, err = fromResult(item, depth+1)
		m.Set(key.String(), v)
		return err == nil
	})
	if err != nil {
		return Value{}, err
	}
	return Object(m), nil
}

// looksLikeJSON reports whether s plausibly holds a JSON object or array.
func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return false
	}
	return (s[0] == '{' && s[len(s)-1] == '}') || (s[0] == '[' && s[len(s)-1] == ']')
}

// MaxReportDepth is the nesting bound enforced on report documents.
const MaxReportDepth = 100

// EncodeDocument renders doc as indented JSON. Documents deeper than
// MaxReportDepth fail with ErrSerialization.
func EncodeDocument(doc Value) ([]byte, error) {
	if d := doc.Depth(); d > MaxReportDepth {
		return nil, fmt.Errorf("%w: depth %d exceeds %d", ErrSerialization, d, MaxReportDepth)
	}
	raw, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return pretty.PrettyOptions(raw, &pretty.Options{Width: 80, Indent: "    ", SortKeys: false}), nil
}
