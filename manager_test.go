package trace

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listTarget builds a writer config backed by an externally-visible sink
func listTarget(name string, background bool) (*LogWriterConfig, *ListWriter[TraceEntry]) {
	sink := NewListWriter[TraceEntry](nil)
	wc := &LogWriterConfig{
		Name:              name,
		BackgroundLogging: background,
		New: func(setup *SetupLog) (LogWriter, error) {
			lw := NewLogWriter(name, setup, true)
			if err := lw.AddEntryWriter(sink); err != nil {
				return nil, err
			}
			return lw, nil
		},
	}
	return wc, sink
}

func TestLogManagerGetLogWriter(t *testing.T) {
	m := NewLogManager(nil)
	defer m.Dispose()

	wc, sink := listTarget("list", false)
	m.Register(wc)

	// Construction is lazy and auto-starts the manager
	lw, err := m.GetLogWriter(wc)
	require.NoError(t, err)
	assert.Equal(t, StateStarted, m.State())
	assert.Equal(t, StateStarted, lw.State())

	// Repeated lookups return the same instance
	again, err := m.GetLogWriter(wc)
	require.NoError(t, err)
	assert.Same(t, lw, again)

	ew, ok := TryGetEntryWriter[TraceEntry](lw)
	require.True(t, ok)
	ew.Write(&TraceEntry{Message: "direct"})
	assert.Equal(t, 1, sink.Count())
}

func TestLogManagerUnregisteredConfig(t *testing.T) {
	m := NewLogManager(nil)
	defer m.Dispose()

	wc, _ := listTarget("unknown", false)
	_, err := m.GetLogWriter(wc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestLogManagerFactoryFailure(t *testing.T) {
	m := NewLogManager(nil)
	defer m.Dispose()

	wc := &LogWriterConfig{
		Name: "broken",
		New: func(*SetupLog) (LogWriter, error) {
			return nil, errors.New("no disk")
		},
	}
	m.Register(wc)

	_, err := m.GetLogWriter(wc)
	require.Error(t, err)
	assert.False(t, m.IsHealthy())
}

func TestLogManagerGetEntryWriterComposite(t *testing.T) {
	m := NewLogManager(nil)
	defer m.Dispose()

	first, firstSink := listTarget("first", false)
	second, secondSink := listTarget("second", false)
	m.Register(first, second)

	_, err := m.GetLogWriter(first)
	require.NoError(t, err)
	_, err = m.GetLogWriter(second)
	require.NoError(t, err)

	// The composite fans out across all started writers exposing the type
	ew := GetEntryWriter[TraceEntry](m)
	ew.Write(&TraceEntry{Message: "both"})
	assert.Equal(t, 1, firstSink.Count())
	assert.Equal(t, 1, secondSink.Count())

	// Unexposed types yield a disabled writer, never nil
	other := GetEntryWriter[auditEntry](m)
	assert.False(t, other.IsEnabled())
	assert.NotPanics(t, func() { other.Write(&auditEntry{}) })
}

func TestLogManagerBackgroundInitializer(t *testing.T) {
	m := NewLogManager(nil)

	wc, sink := listTarget("bg", true)
	m.Register(wc)

	lw, err := m.GetLogWriter(wc)
	require.NoError(t, err)

	// The pipeline proxy reports synchronized, suppressing the serializer
	assert.True(t, lw.IsSynchronized())
	_, isSerializer := lw.(*SynchronizingWriter)
	assert.False(t, isSerializer)

	ew, ok := TryGetEntryWriter[TraceEntry](lw)
	require.True(t, ok)
	for range 50 {
		ew.Write(&TraceEntry{Message: "queued"})
	}

	// Dispose flushes the queued entries through the worker
	require.NoError(t, m.Dispose())
	assert.Equal(t, 50, sink.Count())
}

func TestLogManagerSynchronizingInitializer(t *testing.T) {
	m := NewLogManager(nil)
	defer m.Dispose()

	sink := NewListWriter[TraceEntry](nil)
	wc := &LogWriterConfig{
		Name: "unsync",
		New: func(setup *SetupLog) (LogWriter, error) {
			lw := NewLogWriter("unsync", setup, false)
			if err := lw.AddEntryWriter(&unsyncWriter{sink}); err != nil {
				return nil, err
			}
			return lw, nil
		},
	}
	m.Register(wc)

	lw, err := m.GetLogWriter(wc)
	require.NoError(t, err)

	// An unsynchronized foreground writer gets the serializing decorator
	_, isSerializer := lw.(*SynchronizingWriter)
	assert.True(t, isSerializer)
	assert.True(t, lw.IsSynchronized())
}

func TestLogManagerStopReverseOrder(t *testing.T) {
	m := NewLogManager(nil)

	var stopped []string
	track := func(name string) *LogWriterConfig {
		return &LogWriterConfig{
			Name: name,
			New: func(setup *SetupLog) (LogWriter, error) {
				lw := NewLogWriter(name, setup, true)
				lw.OnStateChange(func(_, to State) {
					if to == StateStopping {
						stopped = append(stopped, name)
					}
				})
				return lw, nil
			},
		}
	}

	a, b, c := track("a"), track("b"), track("c")
	m.Register(a, b, c)
	for _, wc := range []*LogWriterConfig{a, b, c} {
		_, err := m.GetLogWriter(wc)
		require.NoError(t, err)
	}

	require.NoError(t, m.Stop())
	assert.Equal(t, []string{"c", "b", "a"}, stopped, "writers stop in reverse startup order")
}

func TestLogManagerStopContinuesOnFailure(t *testing.T) {
	m := NewLogManager(nil)

	var stopped []string
	failing := &LogWriterConfig{
		Name: "failing",
		New: func(setup *SetupLog) (LogWriter, error) {
			lw := NewLogWriter("failing", setup, true)
			lw.Init("failing", setup, nil, func() error { return errors.New("stop refused") }, nil)
			return lw, nil
		},
	}
	healthy := &LogWriterConfig{
		Name: "healthy",
		New: func(setup *SetupLog) (LogWriter, error) {
			lw := NewLogWriter("healthy", setup, true)
			lw.OnStateChange(func(_, to State) {
				if to == StateStopped {
					stopped = append(stopped, "healthy")
				}
			})
			return lw, nil
		},
	}
	m.Register(healthy, failing)
	_, err := m.GetLogWriter(healthy)
	require.NoError(t, err)
	_, err = m.GetLogWriter(failing)
	require.NoError(t, err)

	err = m.Stop()
	require.Error(t, err, "per-writer failures are reported")
	assert.Contains(t, stopped, "healthy", "shutdown continues past the failing writer")
	assert.False(t, m.IsHealthy())
}

func TestLogManagerReset(t *testing.T) {
	m := NewLogManager(nil)

	wc, sink := listTarget("resettable", true)
	m.Register(wc)
	lw, err := m.GetLogWriter(wc)
	require.NoError(t, err)

	ew, ok := TryGetEntryWriter[TraceEntry](lw)
	require.True(t, ok)
	ew.Write(&TraceEntry{Message: "before reset"})

	require.NoError(t, m.Reset())
	assert.True(t, m.IsHealthy(), "reset clears the setup log")

	// Writers were emptied: the old config must be re-registered
	_, err = m.GetLogWriter(wc)
	assert.ErrorIs(t, err, ErrNotRegistered)

	// A subsequent configure-and-start produces an equivalent healthy state
	wc2, sink2 := listTarget("resettable", true)
	m.Register(wc2)
	lw2, err := m.GetLogWriter(wc2)
	require.NoError(t, err)
	ew2, ok := TryGetEntryWriter[TraceEntry](lw2)
	require.True(t, ok)
	ew2.Write(&TraceEntry{Message: "after reset"})

	require.NoError(t, m.Dispose())
	assert.Equal(t, 1, sink.Count())
	assert.Equal(t, 1, sink2.Count())
	assert.True(t, m.IsHealthy())
}
