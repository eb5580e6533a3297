package trace

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// RotatingFileConfig sizes the rotating file sink.
type RotatingFileConfig struct {
	Filename   string
	MaxSizeMB  int // Max size per log file before rotation
	MaxBackups int // Rotated files to keep, 0 keeps all
	MaxAgeDays int // Days to retain rotated files, 0 keeps all
	Compress   bool
}

// RotatingFileTraceWriter renders trace entries into a size-rotated log
// file. Rotation and retention are handled by lumberjack.
type RotatingFileTraceWriter struct {
	*TextTraceWriter
	file *lumberjack.Logger
}

// NewRotatingFileTraceWriter creates a rotating file sink.
func NewRotatingFileTraceWriter(cfg RotatingFileConfig, setup *SetupLog) *RotatingFileTraceWriter {
	file := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	w := &RotatingFileTraceWriter{
		TextTraceWriter: NewTextTraceWriter(file, setup),
		file:            file,
	}
	w.Init("RotatingFileTraceWriter", setup, w.enable, w.disable, w.close)
	return w
}

// Rotate forces a rotation of the current log file.
func (w *RotatingFileTraceWriter) Rotate() error {
	return w.file.Rotate()
}

func (w *RotatingFileTraceWriter) close() error {
	return w.file.Close()
}
