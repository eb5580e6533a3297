package trace

import (
	"fmt"
	"sync/atomic"
)

// traceSink is the switched write target bound to a Tracer.
type traceSink interface {
	isEnabled(name string, level Level) bool
	write(entry *TraceEntry)
}

// TraceWriter gates one trace entry writer behind a switch. Faults from
// the inner writer are isolated and counted; the first occurrence is
// reported to the setup log, later occurrences are suppressed.
type TraceWriter struct {
	sw    TraceSwitch
	inner Writer[TraceEntry]
	setup *SetupLog

	faults   atomic.Uint64
	reported atomic.Bool
}

// NewTraceWriter pairs a switch with a trace entry writer.
func NewTraceWriter(sw TraceSwitch, inner Writer[TraceEntry], setup *SetupLog) *TraceWriter {
	return &TraceWriter{sw: sw, inner: inner, setup: setup}
}

// IsEnabled evaluates the switch and the inner writer.
func (w *TraceWriter) IsEnabled(name string, level Level) bool {
	return w.inner.IsEnabled() && w.sw.IsEnabled(name, level)
}

// Write forwards the entry to the inner writer if the switch admits it.
func (w *TraceWriter) Write(entry *TraceEntry) {
	if !w.IsEnabled(entry.TracerName, entry.Level) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.faults.Add(1)
			if w.reported.CompareAndSwap(false, true) && w.setup != nil {
				w.setup.Error("TraceWriter", fmt.Errorf("%v", r), "trace entry writer fault")
			}
		}
	}()
	w.inner.Write(entry)
}

// Faults returns the number of isolated write faults.
func (w *TraceWriter) Faults() uint64 {
	return w.faults.Load()
}

func (w *TraceWriter) isEnabled(name string, level Level) bool {
	return w.IsEnabled(name, level)
}

func (w *TraceWriter) write(entry *TraceEntry) {
	w.Write(entry)
}

// FanOutTraceWriter routes one entry to multiple trace writers, evaluating
// each switch independently so different sinks may accept or reject the
// same entry by different criteria.
type FanOutTraceWriter struct {
	writers []*TraceWriter
}

// NewFanOutTraceWriter composes trace writers into a fan-out target.
func NewFanOutTraceWriter(writers ...*TraceWriter) *FanOutTraceWriter {
	return &FanOutTraceWriter{writers: writers}
}

// IsEnabled reports whether any constituent admits the entry.
func (w *FanOutTraceWriter) IsEnabled(name string, level Level) bool {
	for _, tw := range w.writers {
		if tw.IsEnabled(name, level) {
			return true
		}
	}
	return false
}

// Write forwards the entry to every constituent whose switch admits it.
func (w *FanOutTraceWriter) Write(entry *TraceEntry) {
	for _, tw := range w.writers {
		tw.Write(entry)
	}
}

func (w *FanOutTraceWriter) isEnabled(name string, level Level) bool {
	return w.IsEnabled(name, level)
}

func (w *FanOutTraceWriter) write(entry *TraceEntry) {
	w.Write(entry)
}

// noopTraceSink is bound to tracers with no configured downstream.
type noopTraceSink struct{}

func (noopTraceSink) isEnabled(string, Level) bool { return false }
func (noopTraceSink) write(*TraceEntry)            {}
