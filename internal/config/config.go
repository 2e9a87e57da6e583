package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read at startup. API keys are never stored in the
// config file.
const (
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvAnthropicKey    = "ANTHROPIC_API_KEY"
	EnvGoogleKey       = "GOOGLE_AI_API_KEY"
	EnvPerplexityKey   = "PERPLEXITY_API_KEY"
	EnvOpenAIPreferred = "OPENAI_PREFERRED_MODEL"
	EnvOpenAIFallback  = "OPENAI_FALLBACK_MODEL"
	EnvAutoUpdate      = "AUTO_UPDATE_MODELS"
	EnvNotifyEmail     = "NOTIFICATION_EMAIL"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Engine   EngineConfig   `yaml:"engine"`
	API      APIConfig      `yaml:"api"`
	LogLevel string         `yaml:"log_level"`
}

// DatabaseConfig represents the SQLite store configuration
type DatabaseConfig struct {
	Provider string `yaml:"provider"` // sqlite
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// ArchiveConfig represents the optional MongoDB raw-response archive.
// When URI is empty the archive is disabled.
type ArchiveConfig struct {
	URI      string `yaml:"uri,omitempty"`
	Database string `yaml:"database,omitempty"`
}

// EngineConfig holds analysis run settings
type EngineConfig struct {
	MaxWorkers      int    `yaml:"max_workers"`
	RUPerTask       int    `yaml:"ru_per_task"`
	QuotaLimit      int    `yaml:"quota_limit"` // monthly request units per user
	SystemTag       string `yaml:"system_tag"`
	CronExpr        string `yaml:"cron_expr"`
	EnableGrounding bool   `yaml:"enable_grounding"`
}

// APIConfig holds HTTP API server settings
type APIConfig struct {
	Host      string  `yaml:"host"`
	Port      int     `yaml:"port"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst int     `yaml:"rate_burst"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Provider: "sqlite",
			URI:      "sovtrack.db",
			Database: "sovtrack",
		},
		Engine: EngineConfig{
			MaxWorkers:      10,
			RUPerTask:       1,
			QuotaLimit:      1000,
			SystemTag:       "daily_llm_analysis",
			CronExpr:        "0 6 * * *",
			EnableGrounding: true,
		},
		API: APIConfig{
			Host:      "127.0.0.1",
			Port:      8080,
			RateLimit: 10,
			RateBurst: 20,
		},
		LogLevel: "INFO",
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sovtrack/config.yaml"
	}
	return filepath.Join(home, ".sovtrack", "config.yaml")
}

// Exists checks if config file exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// APIKeys reads the provider API keys from the environment. Providers with
// an empty key are simply absent from the map.
func APIKeys() map[string]string {
	keys := make(map[string]string)
	for tag, env := range map[string]string{
		"openai":     EnvOpenAIKey,
		"anthropic":  EnvAnthropicKey,
		"google":     EnvGoogleKey,
		"perplexity": EnvPerplexityKey,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			keys[tag] = v
		}
	}
	return keys
}

// AutoUpdateModels reports whether the model discovery job may write the
// registry, per AUTO_UPDATE_MODELS.
func AutoUpdateModels() bool {
	v, err := strconv.ParseBool(os.Getenv(EnvAutoUpdate))
	if err != nil {
		return false
	}
	return v
}
