package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore(t *testing.T) {
	store := NewSessionStore()

	a, err := StartSession([]string{"Alice", "Bob", "Cara"})
	require.NoError(t, err)
	a.OwnerID = "u1"
	b, err := StartSession([]string{"Dan", "Eve", "Finn", "Gus"})
	require.NoError(t, err)
	b.OwnerID = "u2"

	store.AddSession(a)
	store.AddSession(b)

	tbl, ok := store.GetTable(a.ID)
	require.True(t, ok)
	assert.Same(t, a, tbl.Session)

	assert.Equal(t, []uuid.UUID{b.ID}, store.SessionsByOwner("u2"))

	tbl.Mu.Lock()
	store.Retire(tbl)
	tbl.Mu.Unlock()
	_, ok = store.GetTable(a.ID)
	assert.False(t, ok)
	assert.Empty(t, store.SessionsByOwner("u1"))
}

func TestSessionStoreRetire(t *testing.T) {
	store := NewSessionStore()
	s, err := StartSession([]string{"Alice", "Bob", "Cara"})
	require.NoError(t, err)

	old := store.AddSession(s)
	old.Mu.Lock()
	store.Retire(old)
	old.Mu.Unlock()
	assert.True(t, old.Gone)
	_, ok := store.GetTable(s.ID)
	assert.False(t, ok)

	// a resumed session under the same id is not removed by a stale retire
	fresh := store.AddSession(s)
	store.Retire(old)
	got, ok := store.GetTable(s.ID)
	require.True(t, ok)
	assert.Same(t, fresh, got)
	assert.False(t, fresh.Gone)
}
