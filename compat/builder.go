package compat

import (
	"fmt"

	"github.com/lixenwraith/trace"
)

// Builder creates configured logger adapters for gnet and fasthttp from
// an existing tracer or a trace manager.
type Builder struct {
	tracer  *trace.Tracer
	manager *trace.TraceManager
	name    string
	err     error
}

// NewBuilder creates a new adapter builder.
func NewBuilder() *Builder {
	return &Builder{name: "compat"}
}

// WithTracer specifies an existing tracer to use for the adapters.
// If this is set WithManager is ignored.
func (b *Builder) WithTracer(t *trace.Tracer) *Builder {
	if t == nil {
		b.err = fmt.Errorf("trace/compat: provided tracer cannot be nil")
		return b
	}
	b.tracer = t
	return b
}

// WithManager resolves the adapter tracer from a trace manager.
func (b *Builder) WithManager(m *trace.TraceManager) *Builder {
	if m == nil {
		b.err = fmt.Errorf("trace/compat: provided manager cannot be nil")
		return b
	}
	b.manager = m
	return b
}

// TracerName sets the tracer name used when resolving from a manager.
func (b *Builder) TracerName(name string) *Builder {
	b.name = name
	return b
}

// getTracer resolves the tracer to be used.
func (b *Builder) getTracer() (*trace.Tracer, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.tracer != nil {
		return b.tracer, nil
	}
	if b.manager != nil {
		t := b.manager.GetTracer(b.name)
		b.tracer = t
		return t, nil
	}
	// Fall back to the package default manager
	t := trace.GetTracer(b.name)
	b.tracer = t
	return t, nil
}

// BuildGnet creates a gnet adapter.
func (b *Builder) BuildGnet(opts ...GnetOption) (*GnetAdapter, error) {
	t, err := b.getTracer()
	if err != nil {
		return nil, err
	}
	return NewGnetAdapter(t, opts...), nil
}

// BuildFastHTTP creates a fasthttp adapter.
func (b *Builder) BuildFastHTTP(opts ...FastHTTPOption) (*FastHTTPAdapter, error) {
	t, err := b.getTracer()
	if err != nil {
		return nil, err
	}
	return NewFastHTTPAdapter(t, opts...), nil
}
