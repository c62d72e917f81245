package interfaces

import "github.com/bobmcallan/prism/internal/models"

// SessionStore registers analysis sessions in memory. It is not persistence:
// sessions are lost on restart.
type SessionStore interface {
	Put(s *models.Session)
	Get(id string) (*models.Session, bool)
	Delete(id string) bool
	List() []*models.Session
}

// FileStore writes export artefacts (CSV tables and PNG charts).
type FileStore interface {
	// WriteRaw writes data atomically to subdir/key and returns the path.
	WriteRaw(subdir, key string, data []byte) (string, error)

	// BasePath returns the export root directory.
	BasePath() string
}
