package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t, "SGS_HOST", "SGS_PORT", "SGS_BUFFER_SIZE", "SGS_CONNECT_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Connection.Host)
	assert.Equal(t, 2502, cfg.Connection.Port)
	assert.Equal(t, 65536, cfg.Connection.BufferSize)
	assert.Equal(t, 10*time.Second, cfg.Connection.ConnectTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t, "SGS_HOST", "SGS_PORT", "LOG_LEVEL")
	os.Setenv("SGS_HOST", "game.example.com")
	os.Setenv("SGS_PORT", "9999")
	os.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "game.example.com", cfg.Connection.Host)
	assert.Equal(t, 9999, cfg.Connection.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadWithOverrides_CommandLine(t *testing.T) {
	clearEnv(t, "SGS_HOST", "SGS_PORT", "LOG_LEVEL")

	cfg, err := LoadWithOverrides(LoadOptions{
		Host:     "192.168.1.100",
		Port:     "443",
		LogLevel: "warn",
	})
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.100", cfg.Connection.Host)
	assert.Equal(t, 443, cfg.Connection.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
connection:
  host: raids.example.com
  port: 2510
  bufferSize: 131072
logging:
  level: debug
  format: json
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "raids.example.com", cfg.Connection.Host)
	assert.Equal(t, 2510, cfg.Connection.Port)
	assert.Equal(t, 131072, cfg.Connection.BufferSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadWithOverrides_ConfigFileThenEnv(t *testing.T) {
	clearEnv(t, "SGS_HOST", "LOG_LEVEL")

	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
connection:
  host: raids.example.com
  port: 2510
logging:
  level: debug
  format: text
`), 0o600))

	os.Setenv("LOG_LEVEL", "error")

	cfg, err := LoadWithOverrides(LoadOptions{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, "raids.example.com", cfg.Connection.Host)
	assert.Equal(t, "error", cfg.Logging.Level, "env var must take precedence over the file")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid configuration",
			cfg: &Config{
				Connection: ConnectionConfig{Host: "localhost", Port: 2502, BufferSize: 65536},
				Logging:    LoggingConfig{Level: "info", Format: "text"},
			},
		},
		{
			name: "missing host",
			cfg: &Config{
				Connection: ConnectionConfig{Host: "", Port: 2502, BufferSize: 65536},
				Logging:    LoggingConfig{Level: "info", Format: "text"},
			},
			wantErr: true,
			errMsg:  "host cannot be empty",
		},
		{
			name: "invalid port",
			cfg: &Config{
				Connection: ConnectionConfig{Host: "localhost", Port: 99999, BufferSize: 65536},
				Logging:    LoggingConfig{Level: "info", Format: "text"},
			},
			wantErr: true,
			errMsg:  "invalid connection port",
		},
		{
			name: "invalid buffer size",
			cfg: &Config{
				Connection: ConnectionConfig{Host: "localhost", Port: 2502, BufferSize: 0},
				Logging:    LoggingConfig{Level: "info", Format: "text"},
			},
			wantErr: true,
			errMsg:  "buffer size must be positive",
		},
		{
			name: "invalid log level",
			cfg: &Config{
				Connection: ConnectionConfig{Host: "localhost", Port: 2502, BufferSize: 65536},
				Logging:    LoggingConfig{Level: "invalid", Format: "text"},
			},
			wantErr: true,
			errMsg:  "invalid log level",
		},
		{
			name: "invalid log format",
			cfg: &Config{
				Connection: ConnectionConfig{Host: "localhost", Port: 2502, BufferSize: 65536},
				Logging:    LoggingConfig{Level: "info", Format: "xml"},
			},
			wantErr: true,
			errMsg:  "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGetEnvWithDefault(t *testing.T) {
	clearEnv(t, "TEST_CONFIG_VAR")

	assert.Equal(t, "default", getEnvWithDefault("TEST_CONFIG_VAR", "default"))

	os.Setenv("TEST_CONFIG_VAR", "test_value")
	assert.Equal(t, "test_value", getEnvWithDefault("TEST_CONFIG_VAR", "default"))
}

func TestGetIntWithDefault(t *testing.T) {
	clearEnv(t, "TEST_INT_VAR")

	assert.Equal(t, 42, getIntWithDefault("TEST_INT_VAR", 42))

	os.Setenv("TEST_INT_VAR", "100")
	assert.Equal(t, 100, getIntWithDefault("TEST_INT_VAR", 42))

	os.Setenv("TEST_INT_VAR", "not-a-number")
	assert.Equal(t, 42, getIntWithDefault("TEST_INT_VAR", 42))
}

func TestGetBoolWithDefault(t *testing.T) {
	clearEnv(t, "TEST_BOOL_VAR")

	assert.False(t, getBoolWithDefault("TEST_BOOL_VAR", false))

	os.Setenv("TEST_BOOL_VAR", "true")
	assert.True(t, getBoolWithDefault("TEST_BOOL_VAR", false))

	os.Setenv("TEST_BOOL_VAR", "invalid")
	assert.False(t, getBoolWithDefault("TEST_BOOL_VAR", false))
}

func TestGetDurationWithDefault(t *testing.T) {
	clearEnv(t, "TEST_DURATION_VAR")

	assert.Equal(t, 30*time.Second, getDurationWithDefault("TEST_DURATION_VAR", 30*time.Second))

	os.Setenv("TEST_DURATION_VAR", "60s")
	assert.Equal(t, 60*time.Second, getDurationWithDefault("TEST_DURATION_VAR", 30*time.Second))
}

func TestGetOverrideOrEnv(t *testing.T) {
	clearEnv(t, "TEST_OVERRIDE_VAR")
	os.Setenv("TEST_OVERRIDE_VAR", "env_value")

	assert.Equal(t, "override_value", getOverrideOrEnv("override_value", "TEST_OVERRIDE_VAR", "default_value"))
	assert.Equal(t, "env_value", getOverrideOrEnv("", "TEST_OVERRIDE_VAR", "default_value"))

	os.Unsetenv("TEST_OVERRIDE_VAR")
	assert.Equal(t, "default_value", getOverrideOrEnv("", "TEST_OVERRIDE_VAR", "default_value"))
}

func TestGetGlobalConfig(t *testing.T) {
	clearEnv(t, "SGS_HOST")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, cfg, GetGlobalConfig())
}
