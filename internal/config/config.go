// Package config loads the connection profile a host uses to dial the
// session server: address, buffering, and logging knobs. It supports both
// environment-variable configuration (for process-managed hosts) and an
// on-disk YAML profile (for hosts that manage several named server
// endpoints).
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// globalConfig stores the configuration most recently loaded, so packages
// other than the one that called Load can still reach it.
var (
	globalConfig *Config
	configMutex  sync.Mutex
)

// Config holds a connection profile.
type Config struct {
	Connection ConnectionConfig `json:"connection" yaml:"connection"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

// LoadOptions holds command-line override options.
type LoadOptions struct {
	Host       string
	Port       string
	LogLevel   string
	ConfigFile string
}

// ConnectionConfig holds the server address and buffering parameters for a
// connection.
type ConnectionConfig struct {
	Host           string        `json:"host" yaml:"host" env:"SGS_HOST" default:"localhost"`
	Port           int           `json:"port" yaml:"port" env:"SGS_PORT" default:"2502"`
	BufferSize     int           `json:"bufferSize" yaml:"bufferSize" env:"SGS_BUFFER_SIZE" default:"65536"`
	ConnectTimeout time.Duration `json:"connectTimeout" yaml:"connectTimeout" env:"SGS_CONNECT_TIMEOUT" default:"10s"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level        string `json:"level" yaml:"level" env:"LOG_LEVEL" default:"info"`
	Format       string `json:"format" yaml:"format" env:"LOG_FORMAT" default:"text"`
	EnableCaller bool   `json:"enableCaller" yaml:"enableCaller" env:"LOG_ENABLE_CALLER" default:"false"`
	File         string `json:"file" yaml:"file" env:"LOG_FILE" default:""`
}

// Load loads configuration from environment variables with defaults.
func Load() (*Config, error) {
	return LoadWithOverrides(LoadOptions{})
}

// LoadWithOverrides loads configuration with command-line overrides. If
// opts.ConfigFile is set, it is read first as a YAML profile and then
// overlaid with environment variables and the remaining overrides.
func LoadWithOverrides(opts LoadOptions) (*Config, error) {
	config := &Config{}

	if opts.ConfigFile != "" {
		fromFile, err := LoadFile(opts.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
		config = fromFile
	}

	config.Connection.Host = getOverrideOrEnv(opts.Host, "SGS_HOST", orDefault(config.Connection.Host, "localhost"))
	if opts.Port != "" {
		if p, err := strconv.Atoi(opts.Port); err == nil {
			config.Connection.Port = p
		}
	} else {
		config.Connection.Port = getIntWithDefault("SGS_PORT", orDefaultInt(config.Connection.Port, 2502))
	}
	config.Connection.BufferSize = getIntWithDefault("SGS_BUFFER_SIZE", orDefaultInt(config.Connection.BufferSize, 65536))
	config.Connection.ConnectTimeout = getDurationWithDefault("SGS_CONNECT_TIMEOUT", orDefaultDuration(config.Connection.ConnectTimeout, 10*time.Second))

	config.Logging.Level = getOverrideOrEnv(opts.LogLevel, "LOG_LEVEL", orDefault(config.Logging.Level, "info"))
	config.Logging.Format = getEnvWithDefault("LOG_FORMAT", orDefault(config.Logging.Format, "text"))
	config.Logging.EnableCaller = getBoolWithDefault("LOG_ENABLE_CALLER", config.Logging.EnableCaller)
	config.Logging.File = getEnvWithDefault("LOG_FILE", config.Logging.File)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	configMutex.Lock()
	globalConfig = config
	configMutex.Unlock()

	return config, nil
}

// LoadFile reads a YAML connection profile from path without applying any
// environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// GetGlobalConfig returns the configuration most recently stored by Load or
// LoadWithOverrides.
func GetGlobalConfig() *Config {
	configMutex.Lock()
	defer configMutex.Unlock()
	return globalConfig
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Connection.Host == "" {
		return fmt.Errorf("connection host cannot be empty")
	}

	if c.Connection.Port < 1 || c.Connection.Port > 65535 {
		return fmt.Errorf("invalid connection port: %d", c.Connection.Port)
	}

	if c.Connection.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// Helper functions for environment variable parsing.

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getOverrideOrEnv returns the command-line override value, env value, or
// default, in that order of precedence.
func getOverrideOrEnv(override, envKey, defaultValue string) string {
	if override != "" {
		return override
	}
	return getEnvWithDefault(envKey, defaultValue)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultDuration(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}
