package analysis

import (
	"sort"
	"sync"

	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/models"
)

// MemoryStore is the in-process session registry. When full, the oldest
// session is evicted.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	max      int
}

// NewMemoryStore creates a registry holding at most max sessions (0 = unbounded).
func NewMemoryStore(max int) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		max:      max,
	}
}

func (m *MemoryStore) Put(s *models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; !exists && m.max > 0 {
		for len(m.sessions) >= m.max {
			m.evictOldestLocked()
		}
	}
	m.sessions[s.ID] = s
}

func (m *MemoryStore) evictOldestLocked() {
	var oldest *models.Session
	for _, s := range m.sessions {
		if oldest == nil || s.CreatedAt.Before(oldest.CreatedAt) {
			oldest = s
		}
	}
	if oldest != nil {
		delete(m.sessions, oldest.ID)
	}
}

func (m *MemoryStore) Get(id string) (*models.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *MemoryStore) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// List returns sessions newest first.
func (m *MemoryStore) List() []*models.Session {
	m.mu.RLock()
	out := make([]*models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

var _ interfaces.SessionStore = (*MemoryStore)(nil)
