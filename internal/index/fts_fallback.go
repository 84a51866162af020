//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on the entries table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ Entry) error { return nil }

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
// An empty kind searches every kind.
func (db *DB) Search(query string, kind Kind, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT kind, id, title, substr(names, 1, 200)
		FROM entries
		WHERE (title LIKE ? OR names LIKE ? OR id LIKE ?) AND (? = '' OR kind = ?)
		ORDER BY title
		LIMIT ?
	`, like, like, like, kind, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
