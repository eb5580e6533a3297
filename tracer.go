package trace

import (
	"fmt"
	"sync/atomic"
)

// sinkHolder wraps the sink so differing concrete types can be swapped
// through one atomic pointer.
type sinkHolder struct {
	sink traceSink
}

// Tracer is the user-facing trace API bound to a name. The bound writer
// may be replaced atomically when configuration changes; the hot path is a
// single pointer load plus a predicate.
type Tracer struct {
	name   string
	writer atomic.Pointer[sinkHolder]
}

func newTracer(name string, sink traceSink) *Tracer {
	t := &Tracer{name: name}
	t.setSink(sink)
	return t
}

// Name returns the tracer name.
func (t *Tracer) Name() string {
	return t.name
}

// setSink atomically replaces the bound writer.
func (t *Tracer) setSink(sink traceSink) {
	if sink == nil {
		sink = noopTraceSink{}
	}
	t.writer.Store(&sinkHolder{sink: sink})
}

func (t *Tracer) sink() traceSink {
	return t.writer.Load().sink
}

// IsEnabled reports whether an entry at level would be admitted.
func (t *Tracer) IsEnabled(level Level) bool {
	return t.sink().isEnabled(t.name, level)
}

// Trace writes an entry at the given level with an optional cause. The
// entry is only constructed if the switch admits it; the call itself never
// panics on sink faults.
func (t *Tracer) Trace(level Level, err error, msg string, details ...any) {
	sink := t.sink()
	if !sink.isEnabled(t.name, level) {
		return
	}
	sink.write(newTraceEntry(t.name, level, err, msg, details))
}

// Tracef writes a formatted entry; the message is formatted only when the
// switch admits the level.
func (t *Tracer) Tracef(level Level, format string, args ...any) {
	sink := t.sink()
	if !sink.isEnabled(t.name, level) {
		return
	}
	sink.write(newTraceEntry(t.name, level, nil, fmt.Sprintf(format, args...), nil))
}

// Verbose writes an entry at verbose level.
func (t *Tracer) Verbose(msg string, details ...any) {
	t.Trace(LevelVerbose, nil, msg, details...)
}

// Debug writes an entry at debug level.
func (t *Tracer) Debug(msg string, details ...any) {
	t.Trace(LevelDebug, nil, msg, details...)
}

// Info writes an entry at info level.
func (t *Tracer) Info(msg string, details ...any) {
	t.Trace(LevelInfo, nil, msg, details...)
}

// Warn writes an entry at warning level.
func (t *Tracer) Warn(msg string, details ...any) {
	t.Trace(LevelWarn, nil, msg, details...)
}

// Error writes an entry at error level with an optional cause.
func (t *Tracer) Error(err error, msg string, details ...any) {
	t.Trace(LevelError, err, msg, details...)
}

// Severe writes an entry at severe level with an optional cause.
func (t *Tracer) Severe(err error, msg string, details ...any) {
	t.Trace(LevelSevere, err, msg, details...)
}
