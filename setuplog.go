package trace

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// SetupEntry is a diagnostic record about the logging system itself,
// tagged with the component that produced it.
type SetupEntry struct {
	TraceEntry
	Source string
}

// SetupLog is the append-only diagnostic channel for configuration,
// start/stop and fault events. It is synchronized and never routed
// through the background pipeline.
type SetupLog struct {
	mu       sync.Mutex
	entries  []SetupEntry
	maxLevel Level
	toStderr bool
}

// NewSetupLog creates an empty setup log.
func NewSetupLog() *SetupLog {
	return &SetupLog{maxLevel: LevelVerbose}
}

// MirrorToStderr additionally writes Warn and above to stderr.
func (s *SetupLog) MirrorToStderr(enable bool) {
	s.mu.Lock()
	s.toStderr = enable
	s.mu.Unlock()
}

// Append records a diagnostic entry.
func (s *SetupLog) Append(source string, level Level, err error, msg string, details ...any) {
	e := SetupEntry{
		TraceEntry: TraceEntry{
			TimestampUTC: time.Now().UTC(),
			TracerName:   source,
			Level:        level,
			Message:      msg,
			Details:      details,
			Err:          err,
		},
		Source: source,
	}

	s.mu.Lock()
	s.entries = append(s.entries, e)
	if level > s.maxLevel {
		s.maxLevel = level
	}
	mirror := s.toStderr && level >= LevelWarn
	s.mu.Unlock()

	if mirror {
		if err != nil {
			fmt.Fprintf(os.Stderr, "trace: %s %s: %s: %v\n", level, source, msg, err)
		} else {
			fmt.Fprintf(os.Stderr, "trace: %s %s: %s\n", level, source, msg)
		}
	}
}

// Verbose records a verbose-level entry.
func (s *SetupLog) Verbose(source, msg string, details ...any) {
	s.Append(source, LevelVerbose, nil, msg, details...)
}

// Info records an info-level entry.
func (s *SetupLog) Info(source, msg string, details ...any) {
	s.Append(source, LevelInfo, nil, msg, details...)
}

// Warn records a warning-level entry.
func (s *SetupLog) Warn(source, msg string, details ...any) {
	s.Append(source, LevelWarn, nil, msg, details...)
}

// Error records an error-level entry with an optional cause.
func (s *SetupLog) Error(source string, err error, msg string, details ...any) {
	s.Append(source, LevelError, err, msg, details...)
}

// Entries returns a snapshot of all recorded entries.
func (s *SetupLog) Entries() []SetupEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SetupEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// MaxLevel returns the highest severity recorded since the last Clear.
func (s *SetupLog) MaxLevel() Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxLevel
}

// HasErrors reports whether any entry above Info has been recorded.
func (s *SetupLog) HasErrors() bool {
	return s.MaxLevel() > LevelInfo
}

// Len returns the number of recorded entries.
func (s *SetupLog) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear drops all recorded entries and resets the severity watermark.
func (s *SetupLog) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.maxLevel = LevelVerbose
	s.mu.Unlock()
}
