package index

import "github.com/openpecha/catalog/internal/models"

// CatalogIndex defines the interface for catalog indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type CatalogIndex interface {
	UpsertText(t models.Text) error
	UpsertPerson(p models.Person) error
	Search(query string, kind Kind, limit int) ([]SearchResult, error)
	Referrers(target string) ([]Relation, error)
	Close() error
}

// Verify *DB satisfies CatalogIndex at compile time.
var _ CatalogIndex = (*DB)(nil)
