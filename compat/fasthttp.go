package compat

import (
	"fmt"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/trace"
)

// FastHTTPAdapter wraps a trace.Tracer to implement fasthttp's Logger.
type FastHTTPAdapter struct {
	tracer        *trace.Tracer
	defaultLevel  trace.Level
	levelDetector func(string) (trace.Level, bool) // Detect log level from message
}

var _ fasthttp.Logger = (*FastHTTPAdapter)(nil)

// NewFastHTTPAdapter creates a fasthttp-compatible logger adapter.
func NewFastHTTPAdapter(tracer *trace.Tracer, opts ...FastHTTPOption) *FastHTTPAdapter {
	adapter := &FastHTTPAdapter{
		tracer:        tracer,
		defaultLevel:  trace.LevelInfo,
		levelDetector: DetectLogLevel,
	}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter
}

// FastHTTPOption allows customizing adapter behavior.
type FastHTTPOption func(*FastHTTPAdapter)

// WithDefaultLevel sets the level used when no level is detected.
func WithDefaultLevel(level trace.Level) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.defaultLevel = level
	}
}

// WithLevelDetector sets a custom message-content level detector.
func WithLevelDetector(detector func(string) (trace.Level, bool)) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.levelDetector = detector
	}
}

// Printf implements fasthttp's Logger interface.
func (a *FastHTTPAdapter) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	level := a.defaultLevel
	if a.levelDetector != nil {
		if detected, ok := a.levelDetector(msg); ok {
			level = detected
		}
	}
	a.tracer.Trace(level, nil, msg)
}

// DetectLogLevel guesses a level from common message prefixes and markers.
func DetectLogLevel(msg string) (trace.Level, bool) {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "panic"), strings.Contains(lower, "fatal"):
		return trace.LevelSevere, true
	case strings.Contains(lower, "error"):
		return trace.LevelError, true
	case strings.Contains(lower, "warn"):
		return trace.LevelWarn, true
	case strings.Contains(lower, "debug"):
		return trace.LevelDebug, true
	default:
		return trace.LevelInfo, false
	}
}
