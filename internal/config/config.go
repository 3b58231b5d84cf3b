package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `envconfig:"SERVER"`
	Model   ModelConfig   `envconfig:"MODEL"`
	Insight InsightConfig `envconfig:"INSIGHT"`
	Cache   CacheConfig   `envconfig:"CACHE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// ModelConfig describes where the trained artifact lives
type ModelConfig struct {
	// Dir is the local directory holding model.json, feature_scaler.json
	// and model_info.json. Ignored when Bucket is set.
	Dir string `envconfig:"DIR" default:"./model"`

	// Bucket names a Cloud Storage bucket to load the artifact from
	// instead of the local directory.
	Bucket string `envconfig:"BUCKET"`

	// Prefix is the object prefix inside the bucket.
	Prefix string `envconfig:"PREFIX" default:"artifacts"`

	// DatasetPath points at the training dataset CSV used to derive
	// feature medians when model_info.json does not carry them.
	DatasetPath string `envconfig:"DATASET_PATH"`

	// MaxRUL is the fallback normalizer used when the artifact metadata
	// omits max_rul. It is a configured constant, never derived from data.
	MaxRUL float64 `envconfig:"MAX_RUL" default:"1200"`
}

// InsightConfig selects and configures the insight provider
type InsightConfig struct {
	// Provider is one of: external-llm, local-rule, disabled.
	Provider string `envconfig:"PROVIDER" default:"local-rule"`

	// APIKey is required for the external-llm provider.
	APIKey string `envconfig:"API_KEY"`

	BaseURL   string        `envconfig:"BASE_URL" default:"https://api.openai.com/v1"`
	ModelName string        `envconfig:"MODEL_NAME" default:"gpt-4"`
	Timeout   time.Duration `envconfig:"TIMEOUT" default:"15s"`
}

// CacheConfig contains insight/recommendation cache configuration
type CacheConfig struct {
	TTL             time.Duration `envconfig:"TTL" default:"300s"`
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"60s"`

	// RedisAddr enables a shared Redis tier when set. The in-memory tier
	// is always active.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("BATTERY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Model.Dir == "" && c.Model.Bucket == "" {
		return fmt.Errorf("either model dir or model bucket is required")
	}

	if c.Model.MaxRUL <= 0 {
		return fmt.Errorf("max RUL must be positive")
	}

	switch c.Insight.Provider {
	case "external-llm":
		if c.Insight.APIKey == "" {
			return fmt.Errorf("insight API key is required for the external-llm provider")
		}
	case "local-rule", "disabled":
	default:
		return fmt.Errorf("unknown insight provider: %q", c.Insight.Provider)
	}

	if c.Insight.Timeout <= 0 {
		return fmt.Errorf("insight timeout must be positive")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	return nil
}
