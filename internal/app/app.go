// Package app wires configuration, clients and services into one core
// shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/prism/internal/clients/eodhd"
	"github.com/bobmcallan/prism/internal/clients/gemini"
	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/services/analysis"
	"github.com/bobmcallan/prism/internal/services/insight"
	"github.com/bobmcallan/prism/internal/services/market"
	"github.com/bobmcallan/prism/internal/storage/csvfile"
)

// App holds all initialized services and clients.
// It is the shared core used by both cmd/prism-server and cmd/prism.
type App struct {
	Config          *common.Config
	Logger          common.Logger
	Sessions        *analysis.MemoryStore
	Exports         *csvfile.Store
	EODHDClient     interfaces.EODHDClient // nil without an EODHD key
	GeminiClient    interfaces.GeminiClient // nil without a Gemini key
	AnalysisService *analysis.Service
	MarketService   interfaces.MarketService // nil without an EODHD key
	InsightService  *insight.Service
	StartupTime     time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath checks the provided path, PRISM_CONFIG, then the binary
// dir, then the development fallback.
func resolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("PRISM_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "prism.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/prism.toml"
		}
	}
	return configPath
}

// NewApp loads configuration and initializes every client and service.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(resolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	exports, err := csvfile.NewStore(logger, config.Export.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize export store: %w", err)
	}

	a := &App{
		Config:      config,
		Logger:      logger,
		Sessions:    analysis.NewMemoryStore(config.Analysis.MaxSessions),
		Exports:     exports,
		StartupTime: startupStart,
	}
	a.AnalysisService = analysis.NewService(a.Sessions, config.Analysis, logger)

	ctx := context.Background()

	eodhdKey, err := common.ResolveAPIKey("eodhd_api_key", config.Clients.EODHD.APIKey)
	if err != nil {
		logger.Warn().Msg("EODHD API key not configured - price fetching will be unavailable")
	} else {
		client := eodhd.NewClient(eodhdKey,
			eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
		)
		a.EODHDClient = client
		a.MarketService = market.NewService(client, logger)
	}

	geminiKey, err := common.ResolveAPIKey("gemini_api_key", config.Clients.Gemini.APIKey)
	if err != nil {
		logger.Warn().Msg("Gemini API key not configured - AI insights will be unavailable")
	} else {
		client, err := gemini.NewClient(ctx, geminiKey,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			a.GeminiClient = client
		}
	}
	a.InsightService = insight.NewService(a.GeminiClient, logger)

	logger.Info().
		Bool("market", a.MarketService != nil).
		Bool("insights", a.InsightService.Available()).
		Str("startup", time.Since(startupStart).String()).
		Msg("App initialized")

	return a, nil
}

// Close releases resources held by the App.
func (a *App) Close() {
	for _, s := range a.Sessions.List() {
		a.Sessions.Delete(s.ID)
	}
}
