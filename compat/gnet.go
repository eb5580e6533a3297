// Package compat exposes tracers through the logger contracts of gnet and
// fasthttp so servers built on those frameworks route their internal
// logging into the trace pipeline.
package compat

import (
	"fmt"
	"os"

	"github.com/panjf2000/gnet/v2/pkg/logging"

	"github.com/lixenwraith/trace"
)

// GnetAdapter wraps a trace.Tracer to implement gnet's logging.Logger.
type GnetAdapter struct {
	tracer       *trace.Tracer
	fatalHandler func(msg string) // Customizable fatal behavior
}

var _ logging.Logger = (*GnetAdapter)(nil)

// NewGnetAdapter creates a gnet-compatible logger adapter.
func NewGnetAdapter(tracer *trace.Tracer, opts ...GnetOption) *GnetAdapter {
	adapter := &GnetAdapter{
		tracer: tracer,
		fatalHandler: func(msg string) {
			os.Exit(1) // Default behavior matches gnet expectations
		},
	}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter
}

// GnetOption allows customizing adapter behavior.
type GnetOption func(*GnetAdapter)

// WithFatalHandler sets a custom fatal handler.
func WithFatalHandler(handler func(string)) GnetOption {
	return func(a *GnetAdapter) {
		a.fatalHandler = handler
	}
}

// Debugf logs at debug level with printf-style formatting.
func (a *GnetAdapter) Debugf(format string, args ...any) {
	a.tracer.Tracef(trace.LevelDebug, format, args...)
}

// Infof logs at info level with printf-style formatting.
func (a *GnetAdapter) Infof(format string, args ...any) {
	a.tracer.Tracef(trace.LevelInfo, format, args...)
}

// Warnf logs at warn level with printf-style formatting.
func (a *GnetAdapter) Warnf(format string, args ...any) {
	a.tracer.Tracef(trace.LevelWarn, format, args...)
}

// Errorf logs at error level with printf-style formatting.
func (a *GnetAdapter) Errorf(format string, args ...any) {
	a.tracer.Tracef(trace.LevelError, format, args...)
}

// Fatalf logs at severe level and triggers the fatal handler.
func (a *GnetAdapter) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.tracer.Severe(nil, msg, "fatal", true)

	if a.fatalHandler != nil {
		a.fatalHandler(msg)
	}
}
