//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			kind UNINDEXED,
			id UNINDEXED,
			title,
			names,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, e Entry) error {
	_, _ = tx.Exec(`DELETE FROM entries_fts WHERE kind = ? AND id = ?`, e.Kind, e.ID)
	_, err := tx.Exec(`INSERT INTO entries_fts (kind, id, title, names) VALUES (?, ?, ?, ?)`,
		e.Kind, e.ID, e.Title, e.Names)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search over titles and names. Entries
// whose id equals the query come first. An empty kind searches every kind.
func (db *DB) Search(query string, kind Kind, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	rows, err := db.conn.Query(`
		SELECT kind, id, title, substr(names, 1, 200)
		FROM entries
		WHERE id = ? AND (? = '' OR kind = ?)
		ORDER BY kind
		LIMIT ?
	`, query, kind, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search by id: %w", err)
	}
	out, err := scanResults(rows)
	if err != nil || len(out) >= limit {
		return out, err
	}
	// Input with no letters or digits tokenizes to nothing.
	if !strings.ContainsFunc(query, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsNumber(r) }) {
		return out, nil
	}

	rows, err = db.conn.Query(`
		SELECT kind,
		       id,
		       title,
		       snippet(entries_fts, 3, '<b>', '</b>', '...', 32)
		FROM entries_fts
		WHERE entries_fts MATCH ? AND (? = '' OR kind = ?) AND id != ?
		ORDER BY rank
		LIMIT ?
	`, phrase(query), kind, kind, query, limit-len(out))
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	text, err := scanResults(rows)
	if err != nil {
		return nil, err
	}
	return append(out, text...), nil
}

// phrase quotes user input as a single FTS5 string so operators and
// punctuation are matched as text.
func phrase(query string) string {
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}
