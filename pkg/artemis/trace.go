// trace.go normalizes exceptions and error signals into frame traces.

package artemis

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"runtime"
	"strings"
)

// InternalFile stands in for frames without a source location.
const InternalFile = "<internal>"

const maxStackDepth = 64

// maxChainLength bounds how many causes are followed from one error.
const maxChainLength = 32

// Frame is one call-stack entry, innermost first.
type Frame struct {
	Filename string
	Line     int
	Method   string
}

func (f Frame) document() Value {
	m := NewMap().
		Set("filename", String(f.Filename)).
		Set("lineno", Int(int64(f.Line)))
	if f.Method != "" {
		m.Set("method", String(f.Method))
	}
	return Object(m)
}

// StackTracer is implemented by errors that know where they were raised.
// Origin is the raise site; StackTrace lists the calling frames above it.
type StackTracer interface {
	Origin() (file string, line int)
	StackTrace() []Frame
}

// Exception is an error carrying its raise site, call stack and an optional
// cause. Build one with NewException, WrapException or ExceptionAt.
type Exception struct {
	class  string
	msg    string
	cause  error
	origin Frame
	stack  []Frame
}

// NewException returns an Exception raised at the caller's location.
func NewException(msg string) *Exception {
	return newException("Exception", msg, nil, 1)
}

// WrapException returns an Exception raised at the caller's location whose
// cause is err.
func WrapException(err error, msg string) *Exception {
	return newException("Exception", msg, err, 1)
}

// ExceptionAt builds an Exception from an explicit location and stack, for
// hosts that translate foreign error representations.
func ExceptionAt(class, msg, file string, line int, stack []Frame, cause error) *Exception {
	return &Exception{
		class:  class,
		msg:    msg,
		cause:  cause,
		origin: Frame{Filename: file, Line: line},
		stack:  stack,
	}
}

func newException(class, msg string, cause error, skip int) *Exception {
	raw := rawCallers(skip + 1)
	e := &Exception{class: class, msg: msg, cause: cause, origin: Frame{Filename: InternalFile}}
	if len(raw) > 0 {
		e.origin = Frame{Filename: raw[0].File, Line: raw[0].Line}
		e.stack = stackFrames(raw)
	}
	return e
}

// WithClass sets the class name reported for e and returns e.
func (e *Exception) WithClass(class string) *Exception {
	e.class = class
	return e
}

func (e *Exception) Error() string {
	if e.cause == nil {
		return e.msg
	}
	if e.msg == "" {
		return e.cause.Error()
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *Exception) Unwrap() error { return e.cause }

// Message is the exception's own message, without its cause.
func (e *Exception) Message() string { return e.msg }

func (e *Exception) ClassName() string { return e.class }

func (e *Exception) Origin() (string, int) { return e.origin.Filename, e.origin.Line }

func (e *Exception) StackTrace() []Frame { return e.stack }

// PanicException converts a recovered panic value into an Exception whose
// origin is the panicking statement. It must be called from the deferred
// function that recovered.
func PanicException(recovered any) *Exception {
	raw := rawCallers(1)
	site := 0
	for i, f := range raw {
		if f.Function == "runtime.gopanic" {
			site = i + 1
		}
	}
	for site < len(raw) && strings.HasPrefix(raw[site].Function, "runtime.") {
		site++
	}

	e := &Exception{class: "panic", msg: formatRecovered(recovered), origin: Frame{Filename: InternalFile}}
	if err, ok := recovered.(error); ok {
		e.cause = err
	}
	if site < len(raw) {
		e.origin = Frame{Filename: raw[site].File, Line: raw[site].Line}
		e.stack = stackFrames(raw[site:])
	}
	return e
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}

// TraceNode is the normalized form of one exception or error signal. Previous
// links to the causing exception, outermost first.
type TraceNode struct {
	Frames         []Frame
	ExceptionClass string
	Message        string
	Extra          Value
	Previous       *TraceNode

	// errorSignal marks traces synthesized from error signals, which carry
	// only a class.
	errorSignal bool
}

// Len returns the number of nodes in the chain starting at t.
func (t *TraceNode) Len() int {
	n := 0
	for node := t; node != nil; node = node.Previous {
		n++
	}
	return n
}

// Document renders t in report form.
func (t *TraceNode) Document() Value {
	frames := make([]Value, len(t.Frames))
	for i, f := range t.Frames {
		frames[i] = f.document()
	}
	exception := NewMap().Set("class", String(t.ExceptionClass))
	doc := NewMap().Set("frames", Seq(frames...))
	if t.errorSignal {
		return Object(doc.Set("exception", Object(exception)))
	}
	exception.Set("message", String(t.Message))
	doc.Set("exception", Object(exception)).Set("extra", t.Extra)
	if t.Previous != nil {
		doc.Set("previous", t.Previous.Document())
	}
	return Object(doc)
}

// BuildExceptionTrace normalizes err and its chain of causes. extra is
// attached to the outermost node only.
func BuildExceptionTrace(err error, extra Value) *TraceNode {
	var head, tail *TraceNode
	visited := make(map[uintptr]struct{})
	for cur, n := err, 0; cur != nil && n < maxChainLength; cur, n = unwrapOne(cur), n+1 {
		if rv := reflect.ValueOf(cur); rv.Kind() == reflect.Pointer {
			if _, seen := visited[rv.Pointer()]; seen {
				break
			}
			visited[rv.Pointer()] = struct{}{}
		}
		node := exceptionNode(cur)
		if head == nil {
			node.Extra = extra
			head = node
		} else {
			tail.Previous = node
		}
		tail = node
	}
	return head
}

func exceptionNode(err error) *TraceNode {
	node := &TraceNode{ExceptionClass: className(err), Message: messageOf(err)}
	if st, ok := err.(StackTracer); ok {
		file, line := st.Origin()
		node.Frames = append([]Frame{{Filename: file, Line: line}}, st.StackTrace()...)
	} else {
		node.Frames = []Frame{{Filename: InternalFile}}
	}
	return node
}

func className(err error) string {
	if c, ok := err.(interface{ ClassName() string }); ok && c.ClassName() != "" {
		return c.ClassName()
	}
	return fmt.Sprintf("%T", err)
}

func messageOf(err error) string {
	if m, ok := err.(interface{ Message() string }); ok {
		return m.Message()
	}
	return err.Error()
}

func unwrapOne(err error) error {
	if next := errors.Unwrap(err); next != nil {
		return next
	}
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range multi.Unwrap() {
			if e != nil {
				return e
			}
		}
	}
	return nil
}

// BuildErrorTrace synthesizes a trace for an error signal. Frames come from
// the current call stack, minus frames inside this package, followed by the
// signal's own location. skip counts frames above the caller to drop.
func BuildErrorTrace(key DedupKey, sev Severity, skip int) *TraceNode {
	var frames []Frame
	for _, f := range stackFrames(rawCallers(skip + 1)) {
		if isOwnFile(f.Filename) {
			continue
		}
		frames = append(frames, f)
	}
	if !isOwnFile(key.File) {
		frames = append(frames, Frame{Filename: key.File, Line: key.Line})
	}
	return &TraceNode{
		Frames:         frames,
		ExceptionClass: sev.Constant + ": " + key.Message,
		errorSignal:    true,
	}
}

// rawCallers returns runtime frames starting at the function that called
// it, after dropping skip more.
func rawCallers(skip int) []runtime.Frame {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}
	var out []runtime.Frame
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		out = append(out, f)
		if !more {
			break
		}
	}
	return out
}

// stackFrames converts runtime frames into calling frames: each entry names
// a function and the location it was called from.
func stackFrames(raw []runtime.Frame) []Frame {
	out := make([]Frame, 0, len(raw))
	for i, f := range raw {
		frame := Frame{Filename: InternalFile, Method: f.Function}
		if i+1 < len(raw) && raw[i+1].File != "" {
			frame.Filename = raw[i+1].File
			frame.Line = raw[i+1].Line
		}
		out = append(out, frame)
	}
	return out
}

var ownDir = func() string {
	_, file, _, _ := runtime.Caller(0)
	return path.Dir(file)
}()

// isOwnFile reports whether file is a non-test source file of this package.
func isOwnFile(file string) bool {
	return path.Dir(file) == ownDir && !strings.HasSuffix(file, "_test.go")
}
