// internal/lobby/lobby_store.go
package lobby

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// TableStore tracks the tables this process is running bots for.
// It provides thread-safe access to add, retrieve, and delete tables.
type TableStore struct {
	mu     sync.Mutex
	tables map[string]*Table
	log    logrus.FieldLogger
}

// NewTableStore initializes and returns an empty TableStore.
func NewTableStore(log logrus.FieldLogger) *TableStore {
	return &TableStore{
		tables: make(map[string]*Table),
		log:    log,
	}
}

// Add stores t unless a table with the same game ID is already tracked.
func (s *TableStore) Add(t *Table) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tables[t.GameID]; exists {
		s.log.WithField("game_id", t.GameID).Warn("table already tracked")
		return false
	}
	s.tables[t.GameID] = t
	s.log.WithField("game_id", t.GameID).Debug("added table")
	return true
}

// Delete removes the table for gameID and returns it, if it was tracked.
func (s *TableStore) Delete(gameID string) (*Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[gameID]
	if ok {
		delete(s.tables, gameID)
		s.log.WithField("game_id", gameID).Debug("deleted table")
	}
	return t, ok
}

// Get retrieves a table by game ID.
func (s *TableStore) Get(gameID string) (*Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[gameID]
	return t, ok
}

// List returns all tracked tables, oldest first.
func (s *TableStore) List() []*Table {
	s.mu.Lock()
	out := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
