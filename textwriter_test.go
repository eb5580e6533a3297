package trace

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextTraceWriterRendering(t *testing.T) {
	var buf bytes.Buffer
	setup := NewSetupLog()
	w := NewTextTraceWriter(&buf, setup)

	entry := &TraceEntry{
		TimestampUTC: time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC),
		TracerName:   "svc.worker.Pool",
		Level:        LevelInfo,
		Message:      "pool drained",
		Details:      []any{"workers", 4},
	}
	w.Write(entry)

	assert.Equal(t, "09:26:53.589793 INFO    s.w.Pool pool drained workers 4\n", buf.String())
}

func TestTextTraceWriterErrorLines(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextTraceWriter(&buf, NewSetupLog())

	w.Write(&TraceEntry{
		TimestampUTC: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		TracerName:   "svc.Job",
		Level:        LevelError,
		Message:      "job failed",
		Err:          errors.New("connection reset"),
	})

	out := buf.String()
	assert.Contains(t, out, "job failed")
	assert.Contains(t, out, "\n  connection reset\n")
}

func TestTextTraceWriterDetailDump(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextTraceWriter(&buf, NewSetupLog())

	type payload struct {
		ID   int
		Name string
	}
	w.Write(&TraceEntry{
		TimestampUTC: time.Now().UTC(),
		TracerName:   "svc.Dump",
		Level:        LevelDebug,
		Message:      "payload",
		Details:      []any{payload{ID: 7, Name: "x"}},
	})

	// Unknown detail types are dumped with structure information
	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "7")
}

func TestTextTraceWriterLifecycle(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextTraceWriter(&buf, NewSetupLog())

	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
	w.Write(&TraceEntry{Message: "dropped"})
	assert.Zero(t, buf.Len())

	require.NoError(t, w.Start())
	w.Write(&TraceEntry{Message: "kept"})
	assert.NotZero(t, buf.Len())

	assert.False(t, w.IsSynchronized(), "text writer requires a serializer or the pipeline in front")
	assert.Equal(t, traceEntryType, w.EntryType())
}

func TestRotatingFileTraceWriter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotating.log")
	setup := NewSetupLog()

	w := NewRotatingFileTraceWriter(RotatingFileConfig{
		Filename:  path,
		MaxSizeMB: 1,
	}, setup)
	require.NoError(t, w.Start())

	w.Write(&TraceEntry{
		TimestampUTC: time.Now().UTC(),
		TracerName:   "svc.File",
		Level:        LevelInfo,
		Message:      "persisted line",
	})
	require.NoError(t, w.Dispose())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "persisted line")
	assert.False(t, setup.HasErrors())
}
