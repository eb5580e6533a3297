package trace

// Builder provides a fluent API for assembling a configured TraceManager.
// Errors are accumulated and surfaced from Build.
type Builder struct {
	cfg     *Config
	writers []*TraceWriterConfig
	err     error
}

// NewBuilder creates a builder with default configuration values.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// ConfigFile loads configuration values from a TOML file.
func (b *Builder) ConfigFile(path string) *Builder {
	if b.err != nil {
		return b
	}
	cfg, err := NewConfigFromFile(path)
	if err != nil {
		b.err = err
		return b
	}
	b.cfg = cfg
	return b
}

// Set applies "key=value" overrides to the configuration.
func (b *Builder) Set(overrides ...string) *Builder {
	if b.err != nil {
		return b
	}
	for _, override := range overrides {
		if err := b.cfg.ApplyOverride(override); err != nil {
			b.err = err
			return b
		}
	}
	return b
}

// QueueCapacity sets the bounded queue capacity per proxied entry writer.
func (b *Builder) QueueCapacity(n int64) *Builder {
	b.cfg.QueueCapacity = n
	return b
}

// StopTimeoutMs sets the bounded wait for the shutdown marker.
func (b *Builder) StopTimeoutMs(ms int64) *Builder {
	b.cfg.StopTimeoutMs = ms
	return b
}

// SpinYieldLimit sets the worker spin (Gosched) iterations before sleeping.
func (b *Builder) SpinYieldLimit(n int64) *Builder {
	b.cfg.SpinYieldLimit = n
	return b
}

// TimestampFormat sets the timestamp format used by text sinks.
func (b *Builder) TimestampFormat(format string) *Builder {
	b.cfg.TimestampFormat = format
	return b
}

// InternalErrorsToStderr mirrors setup-log warnings to stderr.
func (b *Builder) InternalErrorsToStderr(enable bool) *Builder {
	b.cfg.InternalErrorsToStderr = enable
	return b
}

// Writer adds a trace writer target.
func (b *Builder) Writer(twc *TraceWriterConfig) *Builder {
	b.writers = append(b.writers, twc)
	return b
}

// Build validates the configuration and creates a configured TraceManager.
func (b *Builder) Build() (*TraceManager, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	m := NewTraceManager(b.cfg)
	if len(b.writers) > 0 {
		m.Configure(b.writers...)
	}
	return m, nil
}
