package output

import "sync"

// Snapshot is a flushed table held by MemoryStore.
type Snapshot struct {
	Location Location
	Name     string
	Columns  []Column
	Rows     [][]any
}

// MemoryStore keeps flushed tables in memory, in flush order.
type MemoryStore struct {
	keys   tableKeys
	mu     sync.Mutex
	tables []Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) OpenTable(loc Location, name string, columns []Column) (*Table, error) {
	if err := s.keys.claim(loc, name); err != nil {
		return nil, err
	}
	return newTable(loc, name, columns, s), nil
}

func (s *MemoryStore) writeTable(t *Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables = append(s.tables, Snapshot{
		Location: t.loc,
		Name:     t.name,
		Columns:  t.Columns(),
		Rows:     append([][]any{}, t.rows...),
	})
	return nil
}

// Table returns the flushed table at loc with the given name.
func (s *MemoryStore) Table(loc Location, name string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range s.tables {
		if snap.Location == loc && snap.Name == name {
			return snap, true
		}
	}
	return Snapshot{}, false
}

// Tables returns every flushed table.
func (s *MemoryStore) Tables() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Snapshot(nil), s.tables...)
}

func (s *MemoryStore) Close() error {
	return nil
}
