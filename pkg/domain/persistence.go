package domain

import "context"

// Transaction exposes the record operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	// Insert assigns id = current max id + 1 (1 when empty), stores the client
	// and returns the id.
	Insert(Client) (int64, error)
	// FindByID returns the stored client, with ok=false when absent.
	FindByID(id int64) (Client, bool, error)
	// Update overwrites the record stored under id. Callers check existence.
	Update(id int64, client Client) error
	// Delete removes the record and reports whether one existed.
	Delete(id int64) (bool, error)
	// Search returns every client matching any non-nil criterion, ordered by id.
	Search(ClientQuery) ([]Client, error)
	// List returns every stored client ordered by id.
	List() ([]Client, error)
	// FieldExists reports whether any record's selected field equals value.
	// Records whose field is null never match.
	FieldExists(field Field, value string) (bool, error)
}

// PersistentStore is the record store abstraction used by the service.
type PersistentStore interface {
	// RunInTransaction applies fn atomically; a returned error discards every change.
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	// View runs fn against a read-only snapshot; writes inside fn are not committed.
	View(ctx context.Context, fn func(Transaction) error) error
	// Driver names the backend.
	Driver() string
	// Close releases backend resources.
	Close() error
}
