package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Matching  MatchingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds catalog database configuration
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// CacheConfig holds snapshot cache configuration
type CacheConfig struct {
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute per client IP
	Burst int `mapstructure:"burst"`
}

// MatchingConfig holds thresholds for matching and resolution. The source
// import pipelines never agreed on exact cutoffs, so every knob lives here.
type MatchingConfig struct {
	AutoMergeThreshold     float64 `mapstructure:"auto_merge_threshold"`
	ReviewThreshold        float64 `mapstructure:"review_threshold"`
	MinimumThreshold       float64 `mapstructure:"minimum_threshold"`
	FormBonus              float64 `mapstructure:"form_bonus"`
	AmbiguityDelta         float64 `mapstructure:"ambiguity_delta"`
	MaxConsecutiveFailures int     `mapstructure:"max_consecutive_failures"`
	EnableDebugLogging     bool    `mapstructure:"enable_debug_logging"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/lupito-catalog/")

	// Environment variable settings (LUPITO_DATABASE_DSN, LUPITO_MATCHING_AUTO_MERGE_THRESHOLD, ...)
	v.SetEnvPrefix("LUPITO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Cache defaults
	v.SetDefault("cache.snapshot_ttl", "15m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 120)
	v.SetDefault("ratelimit.burst", 20)

	// Matching defaults: the three-tier 0.9/0.8/0.7 policy
	v.SetDefault("matching.auto_merge_threshold", 0.9)
	v.SetDefault("matching.review_threshold", 0.8)
	v.SetDefault("matching.minimum_threshold", 0.7)
	v.SetDefault("matching.form_bonus", 1.1)
	v.SetDefault("matching.ambiguity_delta", 0.02)
	v.SetDefault("matching.max_consecutive_failures", 5)
	v.SetDefault("matching.enable_debug_logging", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Database.DSN == "" {
		return fmt.Errorf("database DSN is required (set LUPITO_DATABASE_DSN)")
	}

	m := config.Matching
	if m.MinimumThreshold <= 0 || m.AutoMergeThreshold > 1 {
		return fmt.Errorf("matching thresholds must lie in (0, 1], got minimum=%v auto_merge=%v",
			m.MinimumThreshold, m.AutoMergeThreshold)
	}
	if m.MinimumThreshold > m.ReviewThreshold || m.ReviewThreshold > m.AutoMergeThreshold {
		return fmt.Errorf("matching thresholds must be ordered minimum <= review <= auto_merge, got %v/%v/%v",
			m.MinimumThreshold, m.ReviewThreshold, m.AutoMergeThreshold)
	}
	if m.FormBonus < 1 {
		return fmt.Errorf("matching form bonus must be >= 1, got %v", m.FormBonus)
	}

	if config.RateLimit.PerIP <= 0 {
		return fmt.Errorf("rate limit per_ip must be positive, got %d", config.RateLimit.PerIP)
	}

	return nil
}
