package trace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lixenwraith/config"
)

// Config holds the pipeline tuning values shared by managers and pipelines.
type Config struct {
	// Queue and worker settings
	QueueCapacity  int64 `toml:"queue_capacity"`   // Bounded queue slots per proxied entry writer
	StopTimeoutMs  int64 `toml:"stop_timeout_ms"`  // Bounded wait for the shutdown marker
	SpinYieldLimit int64 `toml:"spin_yield_limit"` // Worker spin (Gosched) iterations before sleeping

	// Formatting defaults for text sinks
	TimestampFormat string `toml:"timestamp_format"`

	// Internal error handling
	InternalErrorsToStderr bool `toml:"internal_errors_to_stderr"` // Mirror setup-log warnings to stderr
}

// defaultConfig is the single source for all configurable default values
var defaultConfig = Config{
	QueueCapacity:          512,
	StopTimeoutMs:          1000,
	SpinYieldLimit:         64,
	TimestampFormat:        time.RFC3339Nano,
	InternalErrorsToStderr: false,
}

// DefaultConfig returns a copy of the default configuration.
func DefaultConfig() *Config {
	copiedConfig := defaultConfig
	return &copiedConfig
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	copied := *c
	return &copied
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error
	if c.QueueCapacity <= 0 {
		errs = append(errs, fmt.Errorf("trace: queue_capacity must be positive, got %d", c.QueueCapacity))
	}
	if c.StopTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("trace: stop_timeout_ms cannot be negative, got %d", c.StopTimeoutMs))
	}
	if c.SpinYieldLimit <= 0 {
		errs = append(errs, fmt.Errorf("trace: spin_yield_limit must be positive, got %d", c.SpinYieldLimit))
	}
	if c.TimestampFormat == "" {
		errs = append(errs, errors.New("trace: timestamp_format cannot be empty"))
	}
	return combineErrors(errs...)
}

// StopTimeout returns the shutdown marker wait as a duration.
func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutMs) * time.Millisecond
}

// NewConfigFromFile loads configuration from a TOML file, applying file
// values over the built-in defaults.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	loader := config.New()
	if err := loader.RegisterStruct("trace.", *cfg); err != nil {
		return nil, fmt.Errorf("trace: failed to register config struct: %w", err)
	}
	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("trace: failed to load config from %s: %w", path, err)
	}

	if err := extractConfig(loader, "trace.", cfg); err != nil {
		return nil, fmt.Errorf("trace: failed to extract config values: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// extractConfig pulls loaded values into the Config struct.
func extractConfig(loader *config.Config, prefix string, cfg *Config) error {
	if v, found := loader.Get(prefix + "queue_capacity"); found {
		n, err := asInt64(v)
		if err != nil {
			return fmt.Errorf("queue_capacity: %w", err)
		}
		cfg.QueueCapacity = n
	}
	if v, found := loader.Get(prefix + "stop_timeout_ms"); found {
		n, err := asInt64(v)
		if err != nil {
			return fmt.Errorf("stop_timeout_ms: %w", err)
		}
		cfg.StopTimeoutMs = n
	}
	if v, found := loader.Get(prefix + "spin_yield_limit"); found {
		n, err := asInt64(v)
		if err != nil {
			return fmt.Errorf("spin_yield_limit: %w", err)
		}
		cfg.SpinYieldLimit = n
	}
	if v, found := loader.Get(prefix + "timestamp_format"); found {
		s, err := asString(v)
		if err != nil {
			return fmt.Errorf("timestamp_format: %w", err)
		}
		cfg.TimestampFormat = s
	}
	if v, found := loader.Get(prefix + "internal_errors_to_stderr"); found {
		b, err := asBool(v)
		if err != nil {
			return fmt.Errorf("internal_errors_to_stderr: %w", err)
		}
		cfg.InternalErrorsToStderr = b
	}
	return nil
}

// ApplyOverride applies a single "key=value" override to the configuration.
func (c *Config) ApplyOverride(override string) error {
	key, value, err := parseKeyValue(override)
	if err != nil {
		return err
	}

	switch key {
	case "queue_capacity":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("trace: invalid value for %s: %w", key, err)
		}
		c.QueueCapacity = n
	case "stop_timeout_ms":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("trace: invalid value for %s: %w", key, err)
		}
		c.StopTimeoutMs = n
	case "spin_yield_limit":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("trace: invalid value for %s: %w", key, err)
		}
		c.SpinYieldLimit = n
	case "timestamp_format":
		c.TimestampFormat = value
	case "internal_errors_to_stderr":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("trace: invalid value for %s: %w", key, err)
		}
		c.InternalErrorsToStderr = b
	default:
		return fmt.Errorf("trace: unknown config key %q", key)
	}
	return nil
}

func parseKeyValue(s string) (string, string, error) {
	key, value, found := strings.Cut(s, "=")
	if !found || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("trace: invalid override %q, expected key=value", s)
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func asString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}

func asBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	default:
		return false, fmt.Errorf("expected bool, got %T", v)
	}
}

// LogWriterConfig describes one log writer owned by a LogManager. The
// factory runs lazily on first GetLogWriter; when BackgroundLogging is set
// the background pipeline decorator wraps the writer at start time.
type LogWriterConfig struct {
	Name              string
	BackgroundLogging bool
	New               func(setup *SetupLog) (LogWriter, error)
}

// TraceWriterConfig pairs a switch set with a target log writer config.
type TraceWriterConfig struct {
	Writer   *LogWriterConfig
	Switches *SwitchSet
}
