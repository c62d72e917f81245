package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/prism/internal/models"
)

func TestMemoryStore_EvictsOldest(t *testing.T) {
	store := NewMemoryStore(2)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	store.Put(&models.Session{ID: "a", CreatedAt: base})
	store.Put(&models.Session{ID: "b", CreatedAt: base.Add(time.Minute)})
	store.Put(&models.Session{ID: "c", CreatedAt: base.Add(2 * time.Minute)})

	_, ok := store.Get("a")
	assert.False(t, ok, "oldest session evicted")

	list := store.List()
	if assert.Len(t, list, 2) {
		assert.Equal(t, "c", list[0].ID)
		assert.Equal(t, "b", list[1].ID)
	}

	// Replacing an existing id never evicts.
	store.Put(&models.Session{ID: "b", CreatedAt: base.Add(3 * time.Minute)})
	assert.Len(t, store.List(), 2)

	assert.True(t, store.Delete("b"))
	assert.False(t, store.Delete("b"))
	assert.Len(t, store.List(), 1)
}

func TestMemoryStore_Unbounded(t *testing.T) {
	store := NewMemoryStore(0)
	for _, id := range []string{"a", "b", "c", "d"} {
		store.Put(&models.Session{ID: id})
	}
	assert.Len(t, store.List(), 4)
}
