package noop

import (
	"context"
	"testing"

	"github.com/strongdm/artemis-observe/pkg/artemis"
)

func TestNoopSink_ImplementsSinkInterface(t *testing.T) {
	var _ artemis.Sink = NewNoopSink()
}

func TestNoopSink_Write_ReturnsNil(t *testing.T) {
	sink := NewNoopSink()

	report := artemis.Report{
		ID:    "id-123",
		Kind:  artemis.ReportKindError,
		Level: artemis.LevelWarning,
	}

	if err := sink.Write(context.Background(), report); err != nil {
		t.Errorf("Write returned error: %v", err)
	}
}

func TestNoopSink_FlushAndClose_ReturnNil(t *testing.T) {
	sink := NewNoopSink()

	if err := sink.Flush(context.Background()); err != nil {
		t.Errorf("Flush returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
}

func TestNoopSink_WithHandle(t *testing.T) {
	h, err := artemis.Initialize(artemis.Config{Enabled: true, LogDir: t.TempDir()}, artemis.AllHooks(),
		artemis.WithSink(NewNoopSink()))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer h.Shutdown(context.Background())

	for i := 0; i < 100; i++ {
		h.CaptureError(context.Background(), artemis.ErrorKindNotice, "repeated", "f.go", i)
	}
}
