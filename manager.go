package trace

import (
	"fmt"
	"reflect"
	"sync"
)

// Initializer is a decorator applied while a log writer starts, wrapping
// it with additional behavior such as background queueing or locking.
type Initializer interface {
	Name() string
	Wrap(w LogWriter, wc *LogWriterConfig, m *LogManager) (LogWriter, error)
}

// BackgroundInitializer wraps writers configured for background logging
// with the manager's shared pipeline.
type BackgroundInitializer struct{}

// Name identifies the initializer.
func (BackgroundInitializer) Name() string { return "BackgroundInitializer" }

// Wrap proxies the writer through the manager's background pipeline when
// its config asks for background logging.
func (BackgroundInitializer) Wrap(w LogWriter, wc *LogWriterConfig, m *LogManager) (LogWriter, error) {
	if !wc.BackgroundLogging {
		return w, nil
	}
	return m.pipelineFor().CreateProxyFor(w)
}

// SynchronizingInitializer wraps unsynchronized writers with a serializing
// decorator. The background proxy reports synchronized, so the serializer
// is suppressed when the pipeline is already in front.
type SynchronizingInitializer struct{}

// Name identifies the initializer.
func (SynchronizingInitializer) Name() string { return "SynchronizingInitializer" }

// Wrap serializes the writer unless it is already safe for concurrent use.
func (SynchronizingInitializer) Wrap(w LogWriter, _ *LogWriterConfig, m *LogManager) (LogWriter, error) {
	if w.IsSynchronized() {
		return w, nil
	}
	return NewSynchronizingWriter(w, m.setup), nil
}

// DefaultInitializers returns the default decorator chain: background
// pipeline first, then the serializer for writers that still need it.
func DefaultInitializers() []Initializer {
	return []Initializer{BackgroundInitializer{}, SynchronizingInitializer{}}
}

// LogManager owns the writer configuration, constructs log writers lazily
// and tracks started components for orderly shutdown.
type LogManager struct {
	Lifecycle
	setup *SetupLog
	cfg   *Config

	mu           sync.Mutex
	registered   map[*LogWriterConfig]struct{}
	writers      map[*LogWriterConfig]LogWriter
	order        []LogWriter
	byConfig     []*LogWriterConfig
	initializers []Initializer
	pipeline     *BackgroundPipeline
}

// NewLogManager creates a manager. cfg may be nil for defaults.
func NewLogManager(cfg *Config) *LogManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m := &LogManager{
		setup:        NewSetupLog(),
		cfg:          cfg,
		registered:   make(map[*LogWriterConfig]struct{}),
		writers:      make(map[*LogWriterConfig]LogWriter),
		initializers: DefaultInitializers(),
	}
	m.setup.MirrorToStderr(cfg.InternalErrorsToStderr)
	m.Init("LogManager", m.setup, m.startHook, m.stopHook, m.disposeHook)
	return m
}

// SetupLog returns the diagnostic channel shared by all owned components.
func (m *LogManager) SetupLog() *SetupLog { return m.setup }

// Config returns the manager's tuning configuration.
func (m *LogManager) Config() *Config { return m.cfg }

// Register adds writer configs to the manager. Configuration is mutated
// freely before start and treated as frozen while started.
func (m *LogManager) Register(configs ...*LogWriterConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, wc := range configs {
		if _, ok := m.registered[wc]; ok {
			continue
		}
		m.registered[wc] = struct{}{}
		m.setup.Verbose(m.Name(), "registered log writer config", "name", wc.Name)
	}
}

// SetInitializers replaces the decorator chain applied to new writers.
func (m *LogManager) SetInitializers(initializers ...Initializer) {
	m.mu.Lock()
	m.initializers = initializers
	m.mu.Unlock()
}

// GetLogWriter returns the started writer for wc, constructing it on first
// use. The manager auto-starts if it has not been started yet. Unknown
// configs fail with ErrNotRegistered.
func (m *LogManager) GetLogWriter(wc *LogWriterConfig) (LogWriter, error) {
	switch m.State() {
	case StateUnstarted:
		m.EnsureAutoStarted()
	case StateStopped:
		if err := m.Start(); err != nil {
			return nil, err
		}
	case StateDisposing, StateDisposed:
		return nil, fmt.Errorf("%s: %w", m.Name(), ErrDisposed)
	}

	m.mu.Lock()
	if _, ok := m.registered[wc]; !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%s: %q: %w", m.Name(), wc.Name, ErrNotRegistered)
	}
	if w, ok := m.writers[wc]; ok {
		m.mu.Unlock()
		return w, nil
	}
	initializers := make([]Initializer, len(m.initializers))
	copy(initializers, m.initializers)
	m.mu.Unlock()

	w, err := m.buildWriter(wc, initializers)
	if err != nil {
		m.setup.Error(m.Name(), err, "failed to build log writer", "name", wc.Name)
		return nil, err
	}
	if err := w.Start(); err != nil {
		m.setup.Error(m.Name(), err, "failed to start log writer", "name", wc.Name)
		return nil, &StartError{Component: wc.Name, Cause: err}
	}

	m.mu.Lock()
	m.writers[wc] = w
	m.order = append(m.order, w)
	m.byConfig = append(m.byConfig, wc)
	m.mu.Unlock()
	m.setup.Info(m.Name(), "log writer started", "name", wc.Name)
	return w, nil
}

func (m *LogManager) buildWriter(wc *LogWriterConfig, initializers []Initializer) (LogWriter, error) {
	if wc.New == nil {
		return nil, fmt.Errorf("trace: log writer config %q has no factory", wc.Name)
	}
	w, err := wc.New(m.setup)
	if err != nil {
		return nil, err
	}
	for _, init := range initializers {
		w, err = init.Wrap(w, wc, m)
		if err != nil {
			return nil, fmt.Errorf("trace: initializer %s failed for %q: %w", init.Name(), wc.Name, err)
		}
	}
	return w, nil
}

// StartedWriters returns the constructed writers in startup order.
func (m *LogManager) StartedWriters() []LogWriter {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LogWriter, len(m.order))
	copy(out, m.order)
	return out
}

// GetEntryWriter returns the possibly-composite writer for T across all
// started log writers that expose T. With no match a disabled writer is
// returned so trace sites never need a nil check.
func GetEntryWriter[T any](m *LogManager) Writer[T] {
	t := reflect.TypeFor[T]()
	var found []EntryWriter
	for _, lw := range m.StartedWriters() {
		if ew, ok := lw.FindEntryWriter(t); ok {
			found = append(found, ew)
		}
	}
	switch len(found) {
	case 0:
		return typedWriter[T]{noopEntryWriter{entryType: t}}
	case 1:
		if tw, ok := found[0].(Writer[T]); ok {
			return tw
		}
		return typedWriter[T]{found[0]}
	default:
		return typedWriter[T]{newFanOutEntryWriter(t, m.setup, found...)}
	}
}

// pipelineFor returns the manager's shared background pipeline, creating
// and starting it on first use.
func (m *LogManager) pipelineFor() *BackgroundPipeline {
	m.mu.Lock()
	p := m.pipeline
	if p == nil {
		p = NewBackgroundPipeline(m.setup, m.cfg)
		m.pipeline = p
	}
	m.mu.Unlock()

	switch p.State() {
	case StateUnstarted, StateStopped:
		if err := p.Start(); err != nil {
			m.setup.Error(m.Name(), err, "failed to start background pipeline")
		}
	}
	return p
}

// IsHealthy reports whether no setup-log entry exceeds Info.
func (m *LogManager) IsHealthy() bool {
	return !m.setup.HasErrors()
}

// Reset stops the manager, restores the default initializer list and
// empties the registered writers. A subsequent configure-and-start
// produces an equivalent healthy state.
func (m *LogManager) Reset() error {
	err := m.Stop()

	m.mu.Lock()
	m.registered = make(map[*LogWriterConfig]struct{})
	m.writers = make(map[*LogWriterConfig]LogWriter)
	m.order = nil
	m.byConfig = nil
	m.initializers = DefaultInitializers()
	pipeline := m.pipeline
	m.pipeline = nil
	m.mu.Unlock()

	// The old pipeline is disposed, not just stopped, so its finalizer
	// never fires against the cleared setup log
	if pipeline != nil {
		err = combineErrors(err, pipeline.Dispose())
	}

	m.setup.Clear()
	return err
}

func (m *LogManager) startHook() error {
	m.setup.Info(m.Name(), "starting")
	return nil
}

// stopHook stops writers in reverse startup order, continuing on failure
// and recording each, then stops the shared pipeline.
func (m *LogManager) stopHook() error {
	m.mu.Lock()
	writers := make([]LogWriter, len(m.order))
	copy(writers, m.order)
	configs := make([]*LogWriterConfig, len(m.byConfig))
	copy(configs, m.byConfig)
	m.writers = make(map[*LogWriterConfig]LogWriter)
	m.order = nil
	m.byConfig = nil
	pipeline := m.pipeline
	m.mu.Unlock()

	// Writers are owned by the manager and disposed on each stop; they are
	// rebuilt from their configs on the next GetLogWriter
	var err error
	for i := len(writers) - 1; i >= 0; i-- {
		if stopErr := writers[i].Dispose(); stopErr != nil {
			m.setup.Error(m.Name(), stopErr, "log writer stop failed", "name", configs[i].Name)
			err = combineErrors(err, stopErr)
		}
	}
	if pipeline != nil {
		err = combineErrors(err, pipeline.Stop())
	}
	return err
}

func (m *LogManager) disposeHook() error {
	m.mu.Lock()
	pipeline := m.pipeline
	m.pipeline = nil
	m.mu.Unlock()

	if pipeline != nil {
		return pipeline.Dispose()
	}
	return nil
}

// noopEntryWriter is returned when no started writer exposes the requested
// entry type.
type noopEntryWriter struct {
	entryType reflect.Type
}

func (w noopEntryWriter) IsEnabled() bool         { return false }
func (w noopEntryWriter) EntryType() reflect.Type { return w.entryType }
func (w noopEntryWriter) IsSynchronized() bool    { return true }
func (w noopEntryWriter) WriteEntry(any)          {}
