package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. FLOWFUNDS_PORT.
const EnvPrefix = "FLOWFUNDS"

// Keys of the configuration file and, upper-cased, of the environment.
const (
	KeyPort               = "port"
	KeyDataBackend        = "data_backend"
	KeyDataDir            = "data_dir"
	KeySQLiteDBPath       = "sqlite_db_path"
	KeyWatchData          = "watch_data"
	KeyAMQPURL            = "amqp_url"
	KeyAMQPExchange       = "amqp_exchange"
	KeyAMQPQueue          = "amqp_queue"
	KeyLogLevel           = "log_level"
	KeyLogFormat          = "log_format"
	KeyTimezone           = "timezone"
	KeyRateLimitPerMinute = "rate_limit_per_minute"
	KeyRegexCacheSize     = "regex_cache_size"
	KeyRegexCacheTTL      = "regex_cache_ttl"
	KeyShutdownTimeout    = "shutdown_timeout"
)

var validBackends = []string{"memory", "file", "sqlite"}

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend  string
	DataDir      string
	SQLiteDBPath string
	WatchData    bool

	// AMQP change feed; disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel  string
	LogFormat string

	// Timezone names the location used for "today", e.g. Africa/Kigali.
	Timezone string

	RateLimitPerMinute int
	RegexCacheSize     int
	RegexCacheTTL      time.Duration
	ShutdownTimeout    time.Duration
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "8081")
	v.SetDefault(KeyDataBackend, "file")
	v.SetDefault(KeyDataDir, "./data")
	v.SetDefault(KeySQLiteDBPath, "./data/flowfunds.db")
	v.SetDefault(KeyWatchData, false)
	v.SetDefault(KeyAMQPURL, "")
	v.SetDefault(KeyAMQPExchange, "flowfunds")
	v.SetDefault(KeyAMQPQueue, "flowfunds_events")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyTimezone, "Local")
	v.SetDefault(KeyRateLimitPerMinute, 60)
	v.SetDefault(KeyRegexCacheSize, 64)
	v.SetDefault(KeyRegexCacheTTL, 10*time.Minute)
	v.SetDefault(KeyShutdownTimeout, 10*time.Second)
}

// NewViper returns a viper instance with defaults and environment binding.
// When file is non-empty it must exist; otherwise config.yaml is looked up in
// the working directory and its absence is not an error.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// FromViper reads a Config out of v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Port:               v.GetString(KeyPort),
		DataBackend:        strings.ToLower(v.GetString(KeyDataBackend)),
		DataDir:            v.GetString(KeyDataDir),
		SQLiteDBPath:       v.GetString(KeySQLiteDBPath),
		WatchData:          v.GetBool(KeyWatchData),
		AMQPURL:            v.GetString(KeyAMQPURL),
		AMQPExchange:       v.GetString(KeyAMQPExchange),
		AMQPQueue:          v.GetString(KeyAMQPQueue),
		LogLevel:           v.GetString(KeyLogLevel),
		LogFormat:          v.GetString(KeyLogFormat),
		Timezone:           v.GetString(KeyTimezone),
		RateLimitPerMinute: v.GetInt(KeyRateLimitPerMinute),
		RegexCacheSize:     v.GetInt(KeyRegexCacheSize),
		RegexCacheTTL:      v.GetDuration(KeyRegexCacheTTL),
		ShutdownTimeout:    v.GetDuration(KeyShutdownTimeout),
	}
}

// Load reads defaults, then config.yaml if present, then the environment.
func Load() (*Config, error) {
	v, err := NewViper("")
	if err != nil {
		return nil, err
	}
	return FromViper(v), nil
}

// Location resolves Timezone. Callers run Validate first.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	switch c.DataBackend {
	case "file":
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using file backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	}
	if c.WatchData && c.DataBackend != "file" {
		errors = append(errors, "watch_data requires the file backend")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "console", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if c.Timezone != "" && c.Timezone != "Local" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.RegexCacheSize < 1 || c.RegexCacheSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid regex cache size %d: must be between 1 and 10000", c.RegexCacheSize))
	}
	if c.RegexCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid regex cache TTL %v: must be at least 1 second", c.RegexCacheTTL))
	}
	if c.ShutdownTimeout < time.Second || c.ShutdownTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be between 1 second and 5 minutes", c.ShutdownTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
