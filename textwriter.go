package trace

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/lixenwraith/trace/formatter"
)

// detailDumper renders unsupported detail values with structure and type
// information, compacted for log output.
var detailDumper = &spew.ConfigState{
	Indent:                  " ",
	MaxDepth:                10,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// TextTraceWriter renders trace entries through a Formatter. It is not
// synchronized: the background pipeline or the serializing decorator must
// sit in front of it under concurrent producers.
type TextTraceWriter struct {
	Lifecycle
	f       formatter.Formatter
	enabled atomic.Bool
}

// NewTextTraceWriter creates a trace entry writer rendering onto w.
func NewTextTraceWriter(w io.Writer, setup *SetupLog) *TextTraceWriter {
	return NewFormattedTraceWriter(formatter.NewTextFormatter(w), setup)
}

// NewFormattedTraceWriter creates a trace entry writer over a custom
// formatter.
func NewFormattedTraceWriter(f formatter.Formatter, setup *SetupLog) *TextTraceWriter {
	tw := &TextTraceWriter{f: f}
	tw.Init("TextTraceWriter", setup, tw.enable, tw.disable, nil)
	tw.enabled.Store(true)
	return tw
}

func (w *TextTraceWriter) enable() error {
	w.enabled.Store(true)
	return nil
}

func (w *TextTraceWriter) disable() error {
	w.enabled.Store(false)
	return nil
}

// IsEnabled reports whether writes are currently accepted.
func (w *TextTraceWriter) IsEnabled() bool {
	return w.enabled.Load()
}

// EntryType returns the trace entry type key.
func (w *TextTraceWriter) EntryType() reflect.Type {
	return traceEntryType
}

// IsSynchronized reports false: the formatter allows one entry in flight.
func (w *TextTraceWriter) IsSynchronized() bool {
	return false
}

// Write renders one trace entry.
func (w *TextTraceWriter) Write(entry *TraceEntry) {
	if !w.enabled.Load() {
		return
	}

	w.f.BeginEntry(0)
	w.f.WriteTimestamp(entry.TimestampUTC)
	w.f.WriteField(entry.Level.String(), levelColor(entry.Level), 7)
	w.f.WriteAbbreviatedTypeName(entry.TracerName, formatter.ColorGray, 0)
	w.f.WriteField(entry.Message, formatter.ColorNone, 0)
	for _, d := range entry.Details {
		w.f.WriteField(detailString(d), formatter.ColorGray, 0)
	}
	if entry.Err != nil {
		w.f.WriteLines(entry.Err.Error(), formatter.ColorRed, 1)
	}
	w.f.EndEntry()
}

// WriteEntry renders an untyped trace entry; mismatched types are ignored.
func (w *TextTraceWriter) WriteEntry(entry any) {
	if e, ok := entry.(*TraceEntry); ok {
		w.Write(e)
	}
}

// levelColor maps severities to terminal colors.
func levelColor(l Level) formatter.Color {
	switch {
	case l >= LevelSevere:
		return formatter.ColorMagenta
	case l >= LevelError:
		return formatter.ColorRed
	case l >= LevelWarn:
		return formatter.ColorYellow
	case l >= LevelInfo:
		return formatter.ColorGreen
	default:
		return formatter.ColorGray
	}
}

// detailString converts a detail value for single-field rendering,
// delegating unknown types to spew for structured, compact output.
func detailString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return "nil"
	case time.Duration:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	default:
		var b bytes.Buffer
		detailDumper.Fdump(&b, val)
		return string(bytes.TrimSpace(b.Bytes()))
	}
}
