package trace

import (
	"reflect"
	"time"
)

// TraceEntry is the immutable record produced at a trace site.
type TraceEntry struct {
	TimestampUTC time.Time
	TracerName   string
	Level        Level
	Message      string
	Details      []any
	Err          error
}

// newTraceEntry stamps a trace entry with the current UTC time.
func newTraceEntry(name string, level Level, err error, msg string, details []any) *TraceEntry {
	return &TraceEntry{
		TimestampUTC: time.Now().UTC(),
		TracerName:   name,
		Level:        level,
		Message:      msg,
		Details:      details,
		Err:          err,
	}
}

// traceEntryType is the entry-type key shared by all trace entry writers.
var traceEntryType = reflect.TypeFor[TraceEntry]()

// EntryTypeOf returns the entry-type key for T.
func EntryTypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}
