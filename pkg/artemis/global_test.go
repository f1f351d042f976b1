package artemis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobal_NothingInstalled(t *testing.T) {
	Uninstall()
	assert.Nil(t, Current())
	assert.NotPanics(t, func() {
		CaptureError(context.Background(), ErrorKindWarning, "w", "f.go", 1)
		Trigger(context.Background(), ErrorKindWarning, "w")
		Shutdown(context.Background())
	})
}

func TestGlobal_SetupAndShutdown(t *testing.T) {
	t.Cleanup(Uninstall)
	sink := &testSink{}
	h, err := Setup(enabledConfig(t.TempDir()), AllHooks(), WithSink(sink))
	require.NoError(t, err)
	assert.Same(t, h, Current())

	CaptureError(context.Background(), ErrorKindWarning, "w", "f.go", 1)
	line := currentLine() + 1
	Trigger(context.Background(), ErrorKindNotice, "n")

	reports := sink.getReports()
	require.Len(t, reports, 2)
	frames := reports[1].Trace.Frames
	assert.Equal(t, line, frames[len(frames)-1].Line)

	Shutdown(context.Background())
	assert.Nil(t, Current())
	assert.False(t, h.Registered())
}

func TestGlobal_FailedSetupKeepsPrevious(t *testing.T) {
	t.Cleanup(Uninstall)
	h, err := Setup(enabledConfig(t.TempDir()), AllHooks(), WithSink(&testSink{}))
	require.NoError(t, err)

	_, err = Setup(Config{}, AllHooks())
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Same(t, h, Current())
}

func TestGlobal_InstallReplaces(t *testing.T) {
	t.Cleanup(Uninstall)
	first := &testSink{}
	second := &testSink{}
	h1, err := Initialize(enabledConfig(t.TempDir()), AllHooks(), WithSink(first))
	require.NoError(t, err)
	h2, err := Initialize(enabledConfig(t.TempDir()), AllHooks(), WithSink(second))
	require.NoError(t, err)

	Install(h1)
	Install(h2)
	CaptureError(context.Background(), ErrorKindWarning, "w", "f.go", 1)
	assert.Empty(t, first.getReports())
	assert.Len(t, second.getReports(), 1)

	// Shutting down a handle that is no longer installed leaves the cell alone.
	h1.Shutdown(context.Background())
	assert.Same(t, h2, Current())
}

func TestGlobal_Recover(t *testing.T) {
	t.Cleanup(Uninstall)
	sink := &testSink{}
	_, err := Setup(enabledConfig(t.TempDir()), AllHooks(), WithSink(sink))
	require.NoError(t, err)

	func() {
		defer Recover(context.Background())
		panic("global boom")
	}()
	require.Len(t, sink.getReports(), 1)
	assert.Equal(t, "global boom", sink.getReports()[0].Trace.Message)
}

func TestGlobal_SharedDeduplicator(t *testing.T) {
	t.Cleanup(Uninstall)
	d := NewDeduplicator()
	first := &testSink{}
	second := &testSink{}

	h1, err := Setup(enabledConfig(t.TempDir()), AllHooks(), WithSink(first), WithDeduplicator(d))
	require.NoError(t, err)
	CaptureError(context.Background(), ErrorKindWarning, "w", "f.go", 1)
	h1.Shutdown(context.Background())

	_, err = Setup(enabledConfig(t.TempDir()), AllHooks(), WithSink(second), WithDeduplicator(d))
	require.NoError(t, err)
	CaptureError(context.Background(), ErrorKindWarning, "w", "f.go", 1)

	assert.Len(t, first.getReports(), 1)
	assert.Empty(t, second.getReports())
}
