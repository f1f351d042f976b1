package artemis

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func currentLine() int {
	_, _, line, _ := runtime.Caller(1)
	return line
}

func TestNewException_RecordsCallSite(t *testing.T) {
	line := currentLine() + 1
	e := NewException("boom")

	file, got := e.Origin()
	assert.True(t, strings.HasSuffix(file, "trace_test.go"), file)
	assert.Equal(t, line, got)
	assert.Equal(t, "Exception", e.ClassName())
	require.NotEmpty(t, e.StackTrace())
	assert.Contains(t, e.StackTrace()[0].Method, "TestNewException_RecordsCallSite")
}

func TestException_ErrorAndUnwrap(t *testing.T) {
	e := WrapException(io.EOF, "reading config")
	assert.Equal(t, "reading config: EOF", e.Error())
	assert.Equal(t, "reading config", e.Message())
	assert.ErrorIs(t, e, io.EOF)
	assert.Equal(t, "EOF", WrapException(io.EOF, "").Error())
}

func TestBuildExceptionTrace_Chain(t *testing.T) {
	root := NewException("root").WithClass("InvalidArgumentException")
	mid := WrapException(root, "mid")
	top := WrapException(mid, "top").WithClass("RuntimeException")
	extra := Object(NewMap().Set("order", Int(42)))

	trace := BuildExceptionTrace(top, extra)
	require.Equal(t, 3, trace.Len())

	assert.Equal(t, "RuntimeException", trace.ExceptionClass)
	assert.Equal(t, "top", trace.Message)
	assert.Equal(t, `{"order":42}`, mustJSON(t, trace.Extra))

	assert.Equal(t, "Exception", trace.Previous.ExceptionClass)
	assert.Equal(t, "mid", trace.Previous.Message)
	assert.True(t, trace.Previous.Extra.IsNull())

	last := trace.Previous.Previous
	assert.Equal(t, "InvalidArgumentException", last.ExceptionClass)
	assert.Nil(t, last.Previous)

	file, line := root.Origin()
	assert.Equal(t, Frame{Filename: file, Line: line}, last.Frames[0])
}

func TestBuildExceptionTrace_PlainErrors(t *testing.T) {
	err := fmt.Errorf("load: %w", io.EOF)

	trace := BuildExceptionTrace(err, Null())
	require.Equal(t, 2, trace.Len())
	assert.Equal(t, "*fmt.wrapError", trace.ExceptionClass)
	assert.Equal(t, "load: EOF", trace.Message)
	assert.Equal(t, []Frame{{Filename: InternalFile}}, trace.Frames)
	assert.Equal(t, "*errors.errorString", trace.Previous.ExceptionClass)
	assert.Equal(t, "EOF", trace.Previous.Message)
}

func TestBuildExceptionTrace_JoinedErrorsFollowFirst(t *testing.T) {
	err := errors.Join(io.EOF, io.ErrUnexpectedEOF)
	trace := BuildExceptionTrace(err, Null())
	require.Equal(t, 2, trace.Len())
	assert.Equal(t, "EOF", trace.Previous.Message)
}

type loopErr struct{}

func (e *loopErr) Error() string { return "loop" }
func (e *loopErr) Unwrap() error { return e }

func TestBuildExceptionTrace_StopsOnCycle(t *testing.T) {
	trace := BuildExceptionTrace(&loopErr{}, Null())
	assert.Equal(t, 1, trace.Len())
}

// fieldErr is a comparable struct type whose field may hold an
// uncomparable value.
type fieldErr struct {
	detail any
	cause  error
}

func (e fieldErr) Error() string { return "field" }
func (e fieldErr) Unwrap() error { return e.cause }

func TestBuildExceptionTrace_UncomparableValueError(t *testing.T) {
	err := fieldErr{detail: []string{"a"}, cause: errors.New("root")}
	var trace *TraceNode
	assert.NotPanics(t, func() { trace = BuildExceptionTrace(err, Null()) })
	assert.Equal(t, 2, trace.Len())
}

// endlessErr unwraps to a fresh value forever.
type endlessErr struct{ n int }

func (e endlessErr) Error() string { return "endless" }
func (e endlessErr) Unwrap() error { return endlessErr{e.n + 1} }

func TestBuildExceptionTrace_BoundsChain(t *testing.T) {
	trace := BuildExceptionTrace(endlessErr{}, Null())
	assert.Equal(t, maxChainLength, trace.Len())
}

func TestTraceNode_Document(t *testing.T) {
	cause := ExceptionAt("LogicException", "inner", "inner.php", 3, nil, nil)
	top := ExceptionAt("RuntimeException", "outer", "outer.php", 9,
		[]Frame{{Filename: "index.php", Line: 1, Method: "main"}}, cause)

	doc := mustJSON(t, BuildExceptionTrace(top, Null()).Document())
	assert.Equal(t,
		`{"frames":[{"filename":"outer.php","lineno":9},{"filename":"index.php","lineno":1,"method":"main"}],`+
			`"exception":{"class":"RuntimeException","message":"outer"},"extra":null,`+
			`"previous":{"frames":[{"filename":"inner.php","lineno":3}],`+
			`"exception":{"class":"LogicException","message":"inner"},"extra":null}}`,
		doc)
}

func TestBuildErrorTrace(t *testing.T) {
	key := DedupKey{Kind: ErrorKindWarning, Message: "division by zero", File: "/srv/app/calc.go", Line: 17}
	trace := BuildErrorTrace(key, Classify(key.Kind), 0)

	assert.Equal(t, "E_WARNING: division by zero", trace.ExceptionClass)
	require.NotEmpty(t, trace.Frames)
	assert.Equal(t, Frame{Filename: "/srv/app/calc.go", Line: 17}, trace.Frames[len(trace.Frames)-1])
	for _, f := range trace.Frames {
		assert.False(t, isOwnFile(f.Filename), "frame from package source: %+v", f)
	}

	doc := BuildErrorTrace(key, Classify(key.Kind), 0).Document()
	assert.Equal(t, []string{"frames", "exception"}, doc.Map().Keys())
	exc := mustGet(t, doc.Map(), "exception")
	assert.Equal(t, []string{"class"}, exc.Map().Keys())
}

func TestBuildErrorTrace_OwnFileNotAppended(t *testing.T) {
	key := DedupKey{Kind: ErrorKindNotice, Message: "m", File: ownDir + "/capture.go", Line: 5}
	trace := BuildErrorTrace(key, Classify(key.Kind), 0)
	for _, f := range trace.Frames {
		assert.NotEqual(t, key.File, f.Filename)
	}
}

var panicLine int

func panicWithValue() {
	panicLine = currentLine() + 1
	panic("kaboom")
}

func panicOutOfRange(items []int, i int) int {
	panicLine = currentLine() + 1
	return items[i]
}

func capturePanic(fn func()) (e *Exception) {
	defer func() {
		e = PanicException(recover())
	}()
	fn()
	return nil
}

func TestPanicException_LocatesPanicSite(t *testing.T) {
	e := capturePanic(panicWithValue)
	require.NotNil(t, e)

	file, line := e.Origin()
	assert.True(t, strings.HasSuffix(file, "trace_test.go"), file)
	assert.Equal(t, panicLine, line)
	assert.Equal(t, "panic", e.ClassName())
	assert.Equal(t, "kaboom", e.Message())
	assert.Nil(t, e.Unwrap())
}

func TestPanicException_RuntimeError(t *testing.T) {
	e := capturePanic(func() { panicOutOfRange([]int{1}, 3) })
	require.NotNil(t, e)

	_, line := e.Origin()
	assert.Equal(t, panicLine, line)

	var rerr runtime.Error
	assert.ErrorAs(t, e, &rerr)
	assert.Contains(t, e.Message(), "index out of range")

	trace := BuildExceptionTrace(e, Null())
	assert.Equal(t, 2, trace.Len())
}

func TestStackFrames_ShiftsCallSites(t *testing.T) {
	raw := []runtime.Frame{
		{Function: "pkg.inner", File: "inner.go", Line: 3},
		{Function: "pkg.outer", File: "outer.go", Line: 8},
		{Function: "main.main", File: "main.go", Line: 1},
	}
	got := stackFrames(raw)
	assert.Equal(t, []Frame{
		{Filename: "outer.go", Line: 8, Method: "pkg.inner"},
		{Filename: "main.go", Line: 1, Method: "pkg.outer"},
		{Filename: InternalFile, Method: "main.main"},
	}, got)
}
