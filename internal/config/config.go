package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/phishshield/")
	v.AddConfigPath("$HOME/.phishshield")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("PHISHSHIELD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// HTTP server defaults
	v.SetDefault("server.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.request_timeout", "15s")

	// SMTP content filter defaults
	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.listen_address", "0.0.0.0:10025")
	v.SetDefault("smtp.relay_address", "127.0.0.1")
	v.SetDefault("smtp.relay_port", 10026)
	v.SetDefault("smtp.block_phishing", false)
	v.SetDefault("smtp.trusted_domains", []string{})
	v.SetDefault("smtp.headers.score", "X-Phishing-Score")
	v.SetDefault("smtp.headers.verdict", "X-Phishing-Verdict")
	v.SetDefault("smtp.headers.reason", "X-Phishing-Reason")

	// Domain reputation defaults
	v.SetDefault("reputation.virustotal_api_key", "")
	v.SetDefault("reputation.safebrowsing_api_key", "")
	v.SetDefault("reputation.lookup_timeout", "10s")
	v.SetDefault("reputation.cache.type", "memory")
	v.SetDefault("reputation.cache.ttl", "1h")
	v.SetDefault("reputation.cache.redis_addr", "localhost:6379")
	v.SetDefault("reputation.cache.redis_password", "")
	v.SetDefault("reputation.cache.redis_db", 0)

	// Intent model defaults
	v.SetDefault("intent.provider", "heuristic")
	v.SetDefault("intent.openai_api_key", "")
	v.SetDefault("intent.openai_model", "gpt-4o-mini")
	v.SetDefault("intent.max_body_size", 4096)

	// Adaptive scorer defaults
	v.SetDefault("adaptive.model_path", "data/feedback_model.json")

	// Feedback log defaults
	v.SetDefault("feedback.path", "data/feedback.jsonl")

	// Scan history defaults
	v.SetDefault("history.type", "sqlite")
	v.SetDefault("history.sqlite_path", "data/scan_history.db")
	v.SetDefault("history.mysql_dsn", "user:password@tcp(localhost:3306)/phishshield")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
