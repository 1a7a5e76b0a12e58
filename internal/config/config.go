// Package config provides configuration management using Viper.
// It loads configuration from environment variables, .env files, and config files.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerPort                = 8080
	defaultServerHost                = "0.0.0.0"
	defaultReadTimeout               = 30 * time.Second
	defaultWriteTimeout              = 30 * time.Second
	defaultDatabasePath              = "./data/ytcollage.db"
	defaultDatabaseConnectionTimeout = 5 * time.Second
	defaultDatabaseEnableWAL         = true
	defaultMigrationsPath            = "file://./migrations"
	defaultLogLevel                  = "info"
	defaultLogPretty                 = false
	defaultCellSize                  = 150
	defaultPlaylistMinIDs            = 2
	defaultIdleTimeout               = 30 * time.Minute
	defaultCleanupInterval           = time.Minute
	defaultSessionRetention          = 7 * 24 * time.Hour
	defaultThumbnailBaseURL          = "https://img.youtube.com"
	defaultFetchTimeout              = 10 * time.Second
	defaultMaxThumbnailBytes         = 2 << 20
	defaultRequestsPerSecond         = 20.0
	defaultBurst                     = 9
	defaultBreakerThreshold          = 5
	defaultBreakerReset              = 30 * time.Second
	envPrefix                        = "YTCOLLAGE"

	minCellSize = 16
	maxCellSize = 1024
	slotCount   = 9
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	Collage   CollageConfig
	Thumbnail ThumbnailConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Path              string
	ConnectionTimeout time.Duration
	EnableWAL         bool
	MigrationsPath    string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// CollageConfig holds board and compositing configuration
type CollageConfig struct {
	// CellSize is the edge length in pixels of one grid cell; the collage is 3*CellSize square.
	CellSize int
	// PlaylistMinIDs is the number of valid video ids needed before a playlist link is offered.
	PlaylistMinIDs  int
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
	// SessionRetention is how long a stored session survives without an update.
	SessionRetention time.Duration
}

// ThumbnailConfig holds thumbnail fetch configuration
type ThumbnailConfig struct {
	BaseURL           string
	FetchTimeout      time.Duration
	MaxBytes          int64
	RequestsPerSecond float64
	Burst             int
	BreakerThreshold  int
	BreakerReset      time.Duration
}

// Load reads configuration from .env file, config files, environment variables, and defaults
func Load() (*Config, error) {
	// .env files are optional in production and CI where env vars are set directly
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ytcollage")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.readtimeout", defaultReadTimeout)
	v.SetDefault("server.writetimeout", defaultWriteTimeout)

	// Database defaults
	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("database.connectiontimeout", defaultDatabaseConnectionTimeout)
	v.SetDefault("database.enablewal", defaultDatabaseEnableWAL)
	v.SetDefault("database.migrationspath", defaultMigrationsPath)

	// Logging defaults
	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", defaultLogPretty)

	// Collage defaults
	v.SetDefault("collage.cellsize", defaultCellSize)
	v.SetDefault("collage.playlistminids", defaultPlaylistMinIDs)
	v.SetDefault("collage.idletimeout", defaultIdleTimeout)
	v.SetDefault("collage.cleanupinterval", defaultCleanupInterval)
	v.SetDefault("collage.sessionretention", defaultSessionRetention)

	// Thumbnail defaults
	v.SetDefault("thumbnail.baseurl", defaultThumbnailBaseURL)
	v.SetDefault("thumbnail.fetchtimeout", defaultFetchTimeout)
	v.SetDefault("thumbnail.maxbytes", defaultMaxThumbnailBytes)
	v.SetDefault("thumbnail.requestspersecond", defaultRequestsPerSecond)
	v.SetDefault("thumbnail.burst", defaultBurst)
	v.SetDefault("thumbnail.breakerthreshold", defaultBreakerThreshold)
	v.SetDefault("thumbnail.breakerreset", defaultBreakerReset)
}

// Validate checks that configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be > 0)", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid write timeout: %v (must be > 0)", c.Server.WriteTimeout)
	}
	if c.Database.ConnectionTimeout <= 0 {
		return fmt.Errorf("invalid database connection timeout: %v (must be > 0)", c.Database.ConnectionTimeout)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Logging.Level, strings.Join(validLevels, ", "))
	}

	if err := c.Collage.validate(); err != nil {
		return err
	}

	return c.Thumbnail.validate()
}

func (c *CollageConfig) validate() error {
	if c.CellSize < minCellSize || c.CellSize > maxCellSize {
		return fmt.Errorf("invalid cell size: %d (must be between %d and %d)", c.CellSize, minCellSize, maxCellSize)
	}
	if c.PlaylistMinIDs < 1 || c.PlaylistMinIDs > slotCount {
		return fmt.Errorf("invalid playlist minimum: %d (must be between 1 and %d)", c.PlaylistMinIDs, slotCount)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("invalid idle timeout: %v (must be > 0)", c.IdleTimeout)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("invalid cleanup interval: %v (must be > 0)", c.CleanupInterval)
	}
	if c.SessionRetention < c.IdleTimeout {
		return fmt.Errorf("invalid session retention: %v (must be >= idle timeout %v)", c.SessionRetention, c.IdleTimeout)
	}
	return nil
}

func (c *ThumbnailConfig) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid thumbnail base url: %q (must be an absolute http(s) url)", c.BaseURL)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("invalid fetch timeout: %v (must be > 0)", c.FetchTimeout)
	}
	if c.MaxBytes <= 0 {
		return fmt.Errorf("invalid thumbnail max bytes: %d (must be > 0)", c.MaxBytes)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid requests per second: %v (must be > 0)", c.RequestsPerSecond)
	}
	if c.Burst < 1 {
		return fmt.Errorf("invalid burst: %d (must be >= 1)", c.Burst)
	}
	if c.BreakerThreshold < 1 {
		return fmt.Errorf("invalid breaker threshold: %d (must be >= 1)", c.BreakerThreshold)
	}
	if c.BreakerReset <= 0 {
		return fmt.Errorf("invalid breaker reset: %v (must be > 0)", c.BreakerReset)
	}
	return nil
}

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
