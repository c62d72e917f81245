package common

import (
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// Logger is the structured logger shared by every Prism component.
type Logger = arbor.ILogger

const consoleTimeFormat = "15:04:05"

// NewLogger creates a console logger with the specified level
func NewLogger(level string) Logger {
	return arbor.NewLogger().
		WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: consoleTimeFormat,
		}).
		WithLevelFromString(level)
}

// NewLoggerFromConfig creates a logger with the writers selected in config.
// Falls back to console output when no output is configured.
func NewLoggerFromConfig(cfg LoggingConfig) Logger {
	logger := arbor.NewLogger()

	hasFile, hasConsole := false, false
	for _, output := range cfg.Outputs {
		switch output {
		case "file":
			hasFile = true
		case "console", "stdout":
			hasConsole = true
		}
	}

	if hasFile && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err == nil {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   cfg.FilePath,
				TimeFormat: consoleTimeFormat,
				MaxSize:    int64(cfg.MaxSizeMB) * 1024 * 1024,
				MaxBackups: cfg.MaxBackups,
				OutputType: models.OutputFormatLogfmt,
			})
		} else {
			hasConsole = true
		}
	}

	if hasConsole || !hasFile {
		logger = logger.WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: consoleTimeFormat,
		})
	}

	return logger.WithLevelFromString(cfg.Level)
}

// NewDefaultLogger creates a logger with default settings
func NewDefaultLogger() Logger {
	return NewLogger("info")
}

// NewSilentLogger creates a logger without writers, for tests and optional dependencies.
func NewSilentLogger() Logger {
	return arbor.NewLogger().WithLevelFromString("error")
}
