// Package common provides shared utilities for Prism
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Prism
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Analysis    AnalysisConfig `toml:"analysis"`
	Clients     ClientsConfig  `toml:"clients"`
	Logging     LoggingConfig  `toml:"logging"`
	Export      ExportConfig   `toml:"export"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// AnalysisConfig holds tunables for the analytics engines.
type AnalysisConfig struct {
	TradingDays          int     `toml:"trading_days"`
	PCAVarianceThreshold float64 `toml:"pca_variance_threshold"` // default component count covers this share of variance
	SignificanceLevel    float64 `toml:"significance_level"`     // F-test p-value cut-off for the "significant" flag
	MinRegressionObs     int     `toml:"min_regression_obs"`
	FrontierPoints       int     `toml:"frontier_points"`
	MaxSessions          int     `toml:"max_sessions"` // in-memory session registry size
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD  EODHDConfig  `toml:"eodhd"`
	Gemini GeminiConfig `toml:"gemini"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// ExportConfig holds the output directory for CSV and chart exports.
type ExportConfig struct {
	Path string `toml:"path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Analysis: AnalysisConfig{
			TradingDays:          252,
			PCAVarianceThreshold: 0.8,
			SignificanceLevel:    0.05,
			MinRegressionObs:     3,
			FrontierPoints:       30,
			MaxSessions:          64,
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console"},
			FilePath:   "./logs/prism.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Export: ExportConfig{
			Path: "./export",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PRISM_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("PRISM_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("PRISM_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("PRISM_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("PRISM_EXPORT_PATH"); path != "" {
		config.Export.Path = path
	}

	if v := os.Getenv("PRISM_PCA_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Analysis.PCAVarianceThreshold = f
		}
	}

	if model := os.Getenv("PRISM_GEMINI_MODEL"); model != "" {
		config.Clients.Gemini.Model = model
	}
}

// Validate rejects analysis settings the engines cannot work with.
func (c *Config) Validate() error {
	a := c.Analysis
	if a.TradingDays <= 0 {
		return fmt.Errorf("analysis.trading_days must be positive, got %d", a.TradingDays)
	}
	if a.PCAVarianceThreshold <= 0 || a.PCAVarianceThreshold > 1 {
		return fmt.Errorf("analysis.pca_variance_threshold must be in (0, 1], got %g", a.PCAVarianceThreshold)
	}
	if a.SignificanceLevel <= 0 || a.SignificanceLevel >= 1 {
		return fmt.Errorf("analysis.significance_level must be in (0, 1), got %g", a.SignificanceLevel)
	}
	if a.MinRegressionObs < 3 {
		return fmt.Errorf("analysis.min_regression_obs must be at least 3, got %d", a.MinRegressionObs)
	}
	if a.FrontierPoints < 2 {
		return fmt.Errorf("analysis.frontier_points must be at least 2, got %d", a.FrontierPoints)
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment or fallback
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"eodhd_api_key":  {"EODHD_API_KEY", "PRISM_EODHD_API_KEY"},
		"gemini_api_key": {"GEMINI_API_KEY", "PRISM_GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}

	// Environment variables take priority over the config file
	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}
