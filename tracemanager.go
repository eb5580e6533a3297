package trace

import (
	"sync"
)

// TraceManager layers tracer configuration on top of a LogManager: it owns
// a switch set per target log writer, caches tracers by trimmed name and
// swaps their writers atomically on reconfiguration. It shares the log
// manager's setup log and startup state.
type TraceManager struct {
	Lifecycle
	logManager *LogManager

	mu      sync.Mutex
	configs []*TraceWriterConfig
	tracers map[string]*Tracer
}

// NewTraceManager creates a trace manager over its own LogManager.
// cfg may be nil for defaults.
func NewTraceManager(cfg *Config) *TraceManager {
	return NewTraceManagerFor(NewLogManager(cfg))
}

// NewTraceManagerFor creates a trace manager sharing an existing LogManager.
func NewTraceManagerFor(lm *LogManager) *TraceManager {
	m := &TraceManager{
		logManager: lm,
		tracers:    make(map[string]*Tracer),
	}
	m.Init("TraceManager", lm.SetupLog(), m.startHook, m.stopHook, m.disposeHook)
	return m
}

// LogManager returns the underlying log manager.
func (m *TraceManager) LogManager() *LogManager { return m.logManager }

// SetupLog returns the shared diagnostic channel.
func (m *TraceManager) SetupLog() *SetupLog { return m.logManager.SetupLog() }

// IsHealthy reports whether no setup-log entry exceeds Info.
func (m *TraceManager) IsHealthy() bool { return m.logManager.IsHealthy() }

// Configure registers trace writer configs and refreshes existing tracers
// so they pick up the new targets.
func (m *TraceManager) Configure(configs ...*TraceWriterConfig) {
	m.mu.Lock()
	m.configs = append(m.configs, configs...)
	m.mu.Unlock()

	for _, twc := range configs {
		if twc.Writer != nil {
			m.logManager.Register(twc.Writer)
		}
	}
	m.RefreshTracers()
}

// GetTracer returns the tracer for name, trimmed. Tracers are identified
// by trimmed name within a manager; repeated calls return the same
// instance.
func (m *TraceManager) GetTracer(name string) *Tracer {
	m.EnsureAutoStarted()
	name = trimTracerName(name)

	m.mu.Lock()
	if t, ok := m.tracers[name]; ok {
		m.mu.Unlock()
		return t
	}
	m.mu.Unlock()

	sink := m.buildSink(name)

	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tracers[name]; ok {
		return t
	}
	t := newTracer(name, sink)
	m.tracers[name] = t
	return t
}

// RefreshTracers recomputes the writer of every cached tracer and swaps it
// atomically. Old writer instances are not retained.
func (m *TraceManager) RefreshTracers() {
	m.mu.Lock()
	names := make([]string, 0, len(m.tracers))
	for name := range m.tracers {
		names = append(names, name)
	}
	m.mu.Unlock()

	for _, name := range names {
		sink := m.buildSink(name)
		m.mu.Lock()
		if t, ok := m.tracers[name]; ok {
			t.setSink(sink)
		}
		m.mu.Unlock()
	}
}

// buildSink resolves the configured targets for a tracer name: a single
// TraceWriter when one target admits the name, a fan-out across many, or a
// no-op when there are none.
func (m *TraceManager) buildSink(name string) traceSink {
	m.mu.Lock()
	configs := make([]*TraceWriterConfig, len(m.configs))
	copy(configs, m.configs)
	m.mu.Unlock()

	var writers []*TraceWriter
	for _, twc := range configs {
		if twc.Writer == nil || twc.Switches == nil {
			continue
		}
		lw, err := m.logManager.GetLogWriter(twc.Writer)
		if err != nil {
			m.SetupLog().Error(m.Name(), err, "failed to resolve trace target", "name", twc.Writer.Name)
			continue
		}
		ew, ok := TryGetEntryWriter[TraceEntry](lw)
		if !ok {
			continue
		}
		sw, ok := twc.Switches.Resolve(name)
		if !ok {
			continue
		}
		writers = append(writers, NewTraceWriter(sw, ew, m.SetupLog()))
	}

	switch len(writers) {
	case 0:
		return noopTraceSink{}
	case 1:
		return writers[0]
	default:
		return NewFanOutTraceWriter(writers...)
	}
}

// Reset stops the manager, drops cached tracers and trace configs, and
// resets the underlying log manager.
func (m *TraceManager) Reset() error {
	stopErr := m.Stop()

	m.mu.Lock()
	for _, t := range m.tracers {
		t.setSink(noopTraceSink{})
	}
	m.tracers = make(map[string]*Tracer)
	m.configs = nil
	m.mu.Unlock()

	return combineErrors(stopErr, m.logManager.Reset())
}

func (m *TraceManager) startHook() error {
	if m.logManager.State() != StateStarted {
		if err := m.logManager.Start(); err != nil {
			return err
		}
	}
	// Rebuild cached tracer sinks; they were swapped to no-op on stop.
	m.RefreshTracers()
	return nil
}

func (m *TraceManager) stopHook() error {
	// Cached tracers go dark while stopped; startHook rebuilds their sinks
	// on restart.
	m.mu.Lock()
	for _, t := range m.tracers {
		t.setSink(noopTraceSink{})
	}
	m.mu.Unlock()
	return m.logManager.Stop()
}

func (m *TraceManager) disposeHook() error {
	return m.logManager.Dispose()
}
