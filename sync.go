package trace

import (
	"reflect"
	"sync"
)

// SynchronizingWriter wraps an unsynchronized LogWriter so its entry
// writers are safe under concurrent producers. A single mutex spans all
// entry writers, which also keeps at most one formatted entry in flight.
type SynchronizingWriter struct {
	Lifecycle
	inner LogWriter

	mu      sync.Mutex // serializes all writes through the decorator
	wrapped map[reflect.Type]EntryWriter
	order   []EntryWriter
}

// NewSynchronizingWriter wraps inner with a serializing decorator.
func NewSynchronizingWriter(inner LogWriter, setup *SetupLog) *SynchronizingWriter {
	w := &SynchronizingWriter{
		inner:   inner,
		wrapped: make(map[reflect.Type]EntryWriter),
	}
	w.Init("SynchronizingWriter", setup, w.startInner, w.stopInner, w.disposeInner)
	for _, ew := range inner.EntryWriters() {
		sw := &synchronizedEntryWriter{owner: w, inner: ew}
		w.wrapped[ew.EntryType()] = sw
		w.order = append(w.order, sw)
	}
	return w
}

// IsSynchronized always reports true for the decorator.
func (w *SynchronizingWriter) IsSynchronized() bool {
	return true
}

// EntryWriters returns the serialized views of the inner entry writers.
func (w *SynchronizingWriter) EntryWriters() []EntryWriter {
	out := make([]EntryWriter, len(w.order))
	copy(out, w.order)
	return out
}

// FindEntryWriter returns the serialized view for entry type t.
func (w *SynchronizingWriter) FindEntryWriter(t reflect.Type) (EntryWriter, bool) {
	ew, ok := w.wrapped[t]
	return ew, ok
}

func (w *SynchronizingWriter) startInner() error {
	return w.inner.Start()
}

func (w *SynchronizingWriter) stopInner() error {
	return w.inner.Stop()
}

func (w *SynchronizingWriter) disposeInner() error {
	return w.inner.Dispose()
}

// synchronizedEntryWriter serializes writes through the owner's mutex.
type synchronizedEntryWriter struct {
	owner *SynchronizingWriter
	inner EntryWriter
}

func (w *synchronizedEntryWriter) IsEnabled() bool {
	return w.inner.IsEnabled()
}

func (w *synchronizedEntryWriter) EntryType() reflect.Type {
	return w.inner.EntryType()
}

func (w *synchronizedEntryWriter) IsSynchronized() bool {
	return true
}

func (w *synchronizedEntryWriter) WriteEntry(entry any) {
	w.owner.mu.Lock()
	defer w.owner.mu.Unlock()
	w.inner.WriteEntry(entry)
}
