// Package memory provides the in-memory implementation of the client record
// store. It is the default backend.
package memory

import (
	"clientcore/pkg/domain"
	"context"
	"sort"
	"sync"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Client aliases domain.Client for in-memory persistence operations.
	Client = domain.Client
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
)

// DriverName identifies the memory backend.
const DriverName = "memory"

type memoryState struct {
	clients map[int64]Client
}

func newMemoryState() memoryState {
	return memoryState{clients: make(map[int64]Client)}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.clients {
		cloned.clients[k] = v.Clone()
	}
	return cloned
}

// Store provides an in-memory transactional store. A single RWMutex guards
// the map, and RunInTransaction holds the write lock for the whole closure so
// read-check-write sequences are atomic.
type Store struct {
	mu    sync.RWMutex
	state memoryState
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{state: newMemoryState()}
}

// Driver returns the backend identifier.
func (s *Store) Driver() string { return DriverName }

// Close is a no-op for the memory backend.
func (s *Store) Close() error { return nil }

// Len returns the number of committed records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.clients)
}

type transaction struct {
	state *memoryState
}

// RunInTransaction executes fn within a transactional copy of the store state
// and commits the copy only when fn succeeds.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&transaction{state: &working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(&transaction{state: &snapshot})
}

func (tx *transaction) nextID() int64 {
	var maxID int64
	for id := range tx.state.clients {
		if id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}

// Insert stores a new client under the next identifier.
func (tx *transaction) Insert(c Client) (int64, error) {
	id := tx.nextID()
	c = c.Clone()
	c.ID = id
	tx.state.clients[id] = c
	return id, nil
}

// FindByID retrieves a client by identifier.
func (tx *transaction) FindByID(id int64) (Client, bool, error) {
	c, ok := tx.state.clients[id]
	if !ok {
		return Client{}, false, nil
	}
	return c.Clone(), true, nil
}

// Update overwrites the record stored under id.
func (tx *transaction) Update(id int64, c Client) error {
	c = c.Clone()
	c.ID = id
	tx.state.clients[id] = c
	return nil
}

// Delete removes a record, reporting whether it existed.
func (tx *transaction) Delete(id int64) (bool, error) {
	if _, ok := tx.state.clients[id]; !ok {
		return false, nil
	}
	delete(tx.state.clients, id)
	return true, nil
}

// Search scans every record and keeps those matching any supplied criterion.
func (tx *transaction) Search(q domain.ClientQuery) ([]Client, error) {
	out := make([]Client, 0)
	if q.Empty() {
		return out, nil
	}
	for _, c := range tx.state.clients {
		if q.Matches(c) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// List returns every record ordered by id.
func (tx *transaction) List() ([]Client, error) {
	out := make([]Client, 0, len(tx.state.clients))
	for _, c := range tx.state.clients {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FieldExists reports whether any non-null field value equals value.
func (tx *transaction) FieldExists(field domain.Field, value string) (bool, error) {
	for _, c := range tx.state.clients {
		if v, ok := c.Value(field); ok && v == value {
			return true, nil
		}
	}
	return false, nil
}
