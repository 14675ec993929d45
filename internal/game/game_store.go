package game

import (
	"sync"

	"github.com/google/uuid"
)

// Table wraps a live Session with the lock that serializes requests against it.
//
// Gone is set, under Mu, when the session is paused, discarded or evicted. A request that
// fetched the table earlier must check it after locking and treat the session as missing.
type Table struct {
	Mu      sync.Mutex
	Session *Session
	Gone    bool
}

// SessionStore keeps every in-memory scoresheet keyed by session id.
type SessionStore struct {
	mu     sync.Mutex
	tables map[uuid.UUID]*Table
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		tables: make(map[uuid.UUID]*Table),
	}
}

// AddSession registers s and returns its table. An existing entry with the same id is replaced.
func (s *SessionStore) AddSession(sess *Session) *Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Table{Session: sess}
	s.tables[sess.ID] = t
	return t
}

func (s *SessionStore) GetTable(id uuid.UUID) (*Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, exists := s.tables[id]
	return t, exists
}

// Retire marks t gone and removes it from the store, unless a newer table has taken its id.
// The caller must hold t.Mu.
func (s *SessionStore) Retire(t *Table) {
	t.Gone = true
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.tables[t.Session.ID]; ok && cur == t {
		delete(s.tables, t.Session.ID)
	}
}

// SessionsByOwner returns the ids of every session started by ownerID.
func (s *SessionStore) SessionsByOwner(ownerID string) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, t := range s.tables {
		if t.Session.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	return ids
}
