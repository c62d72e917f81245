package csvfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
)

// Store writes export artefacts under a base directory.
type Store struct {
	basePath string
	logger   common.Logger
}

// NewStore creates the export directory if needed.
func NewStore(logger common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export path %s: %w", path, err)
	}
	logger.Debug().Str("path", path).Msg("Export store opened")
	return &Store{basePath: path, logger: logger}, nil
}

// BasePath returns the export root.
func (s *Store) BasePath() string {
	return s.basePath
}

// sanitizeKey makes a key safe for use as a filename.
// Replaces /, \, : with _ and collapses ".." to "_" to prevent path traversal.
func sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

// WriteRaw writes data to subdir/key atomically using temp file + rename.
func (s *Store) WriteRaw(subdir, key string, data []byte) (string, error) {
	dir := filepath.Join(s.basePath, sanitizeKey(subdir))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	target := filepath.Join(dir, sanitizeKey(key))

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.logger.Debug().Str("path", target).Int("bytes", len(data)).Msg("Export written")
	return target, nil
}

var _ interfaces.FileStore = (*Store)(nil)
