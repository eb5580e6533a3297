package trace

// Global instance for package-level functions
var defaultManager = NewTraceManager(nil)

// Default returns the process-wide trace manager.
func Default() *TraceManager {
	return defaultManager
}

// Configure registers trace writer targets on the default manager.
func Configure(configs ...*TraceWriterConfig) {
	defaultManager.Configure(configs...)
}

// GetTracer returns a tracer by name from the default manager.
func GetTracer(name string) *Tracer {
	return defaultManager.GetTracer(name)
}

// Shutdown stops and disposes the default manager, flushing queued
// entries through the background pipeline.
func Shutdown() error {
	return defaultManager.Dispose()
}
