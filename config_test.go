package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, int64(512), cfg.QueueCapacity)
	assert.Equal(t, int64(1000), cfg.StopTimeoutMs)
	assert.Equal(t, int64(64), cfg.SpinYieldLimit)
	assert.Equal(t, time.RFC3339Nano, cfg.TimestampFormat)
	assert.False(t, cfg.InternalErrorsToStderr)
	assert.Equal(t, time.Second, cfg.StopTimeout())
}

func TestConfigClone(t *testing.T) {
	cfg1 := DefaultConfig()
	cfg1.QueueCapacity = 64

	cfg2 := cfg1.Clone()
	assert.Equal(t, int64(64), cfg2.QueueCapacity)

	// Modifying the original leaves the clone unchanged
	cfg1.QueueCapacity = 8
	assert.Equal(t, int64(64), cfg2.QueueCapacity)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantError bool
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:      "zero queue capacity",
			modify:    func(c *Config) { c.QueueCapacity = 0 },
			wantError: true,
		},
		{
			name:      "negative stop timeout",
			modify:    func(c *Config) { c.StopTimeoutMs = -1 },
			wantError: true,
		},
		{
			name:      "zero spin yield limit",
			modify:    func(c *Config) { c.SpinYieldLimit = 0 },
			wantError: true,
		},
		{
			name:      "empty timestamp format",
			modify:    func(c *Config) { c.TimestampFormat = "" },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigApplyOverride(t *testing.T) {
	tests := []struct {
		name      string
		override  string
		verify    func(t *testing.T, cfg *Config)
		wantError bool
	}{
		{
			name:     "queue capacity",
			override: "queue_capacity=128",
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, int64(128), cfg.QueueCapacity)
			},
		},
		{
			name:     "stop timeout",
			override: "stop_timeout_ms=250",
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, int64(250), cfg.StopTimeoutMs)
			},
		},
		{
			name:     "stderr mirroring",
			override: "internal_errors_to_stderr=true",
			verify: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.InternalErrorsToStderr)
			},
		},
		{
			name:      "missing separator",
			override:  "invalid",
			wantError: true,
		},
		{
			name:      "unknown key",
			override:  "unknown_key=value",
			wantError: true,
		},
		{
			name:      "invalid value type",
			override:  "queue_capacity=not_a_number",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.ApplyOverride(tt.override)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				tt.verify(t, cfg)
			}
		})
	}
}

func TestBuilderBuild(t *testing.T) {
	wc, sink := listTarget("built", false)

	m, err := NewBuilder().
		QueueCapacity(64).
		StopTimeoutMs(500).
		Writer(&TraceWriterConfig{
			Writer:   wc,
			Switches: NewSwitchSet().Set("", NewThresholdSwitch(LevelInfo)),
		}).
		Build()
	require.NoError(t, err)
	defer m.Dispose()

	assert.Equal(t, int64(64), m.LogManager().Config().QueueCapacity)

	m.GetTracer("built.Check").Info("works")
	assert.Equal(t, 1, sink.Count())
}

func TestBuilderSetOverrides(t *testing.T) {
	m, err := NewBuilder().
		Set("queue_capacity=32", "spin_yield_limit=16").
		Build()
	require.NoError(t, err)
	defer m.Dispose()

	assert.Equal(t, int64(32), m.LogManager().Config().QueueCapacity)
	assert.Equal(t, int64(16), m.LogManager().Config().SpinYieldLimit)
}

func TestBuilderErrorsAccumulate(t *testing.T) {
	_, err := NewBuilder().Set("bogus").QueueCapacity(64).Build()
	require.Error(t, err)
}

func TestBuilderValidation(t *testing.T) {
	_, err := NewBuilder().QueueCapacity(0).Build()
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]Level{
		"verbose": LevelVerbose,
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"error":   LevelError,
		"severe":  LevelSevere,
		" WARN ":  LevelWarn,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("bogus")
	assert.Error(t, err)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "VERBOSE", LevelVerbose.String())
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "SEVERE", LevelSevere.String())
}
