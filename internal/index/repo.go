package index

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openpecha/catalog/internal/checksum"
	"github.com/openpecha/catalog/internal/models"
)

// Kind distinguishes the two resource families stored in the index.
type Kind string

// Indexed kinds.
const (
	KindText   Kind = "text"
	KindPerson Kind = "person"
)

// Relation types.
const (
	RelParent = "parent"
)

// Entry is one indexed text or person.
type Entry struct {
	Kind      Kind
	ID        string
	Title     string
	Names     string
	Language  string
	Type      string
	Checksum  string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Kind    Kind   `json:"kind"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Relation is a directed edge between two entries. Source is always a text id.
// Type is "parent" for translation/commentary parents or the contribution role.
type Relation struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// errNoEntry is returned by get when nothing is indexed under the key.
var errNoEntry = errors.New("index: entry not found")

// UpsertText stores a text with its parent and contribution edges.
func (db *DB) UpsertText(t models.Text) error {
	var rels []Relation
	if t.Parent != nil && *t.Parent != "" && *t.Parent != "N/A" {
		rels = append(rels, Relation{Source: t.ID, Target: *t.Parent, Type: RelParent})
	}
	for _, c := range t.Contributions {
		target := c.PersonID
		if target == "" {
			target = c.AIID
		}
		if target == "" {
			continue
		}
		rels = append(rels, Relation{Source: t.ID, Target: target, Type: string(c.Role)})
	}
	e := Entry{
		Kind:     KindText,
		ID:       t.ID,
		Title:    t.DisplayTitle(),
		Names:    joinLocalized(t.Title, t.AltTitles),
		Language: t.Language,
		Type:     string(t.Type),
	}
	return db.upsert(e, rels)
}

// UpsertPerson stores a person. Persons have no outgoing edges.
func (db *DB) UpsertPerson(p models.Person) error {
	e := Entry{
		Kind:  KindPerson,
		ID:    p.ID,
		Title: p.DisplayName(),
		Names: joinLocalized(p.Name, p.AltNames),
	}
	return db.upsert(e, nil)
}

func (db *DB) upsert(e Entry, rels []Relation) error {
	if e.ID == "" {
		return fmt.Errorf("index: %s without id", e.Kind)
	}
	e.Checksum = fingerprint(e, rels)

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var existing string
	err = tx.QueryRow(`SELECT checksum FROM entries WHERE kind = ? AND id = ?`, e.Kind, e.ID).Scan(&existing)
	switch {
	case err == nil && existing == e.Checksum:
		return nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("index: read checksum: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO entries (kind, id, title, names, language, type, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			title      = excluded.title,
			names      = excluded.names,
			language   = excluded.language,
			type       = excluded.type,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, e.Kind, e.ID, e.Title, e.Names, e.Language, e.Type, e.Checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: upsert entry: %w", err)
	}

	if err := ftsUpsert(tx, e); err != nil {
		return err
	}

	if e.Kind == KindText {
		if _, err := tx.Exec(`DELETE FROM relations WHERE source = ?`, e.ID); err != nil {
			return fmt.Errorf("index: clear relations: %w", err)
		}
		if len(rels) > 0 {
			stmt, err := tx.Prepare(`INSERT OR IGNORE INTO relations (source, target, type) VALUES (?, ?, ?)`)
			if err != nil {
				return fmt.Errorf("index: prepare relation insert: %w", err)
			}
			defer stmt.Close()
			for _, r := range rels {
				if _, err := stmt.Exec(r.Source, r.Target, r.Type); err != nil {
					return fmt.Errorf("index: insert relation: %w", err)
				}
			}
		}
	}

	return tx.Commit()
}

// fingerprint covers every stored field and edge of an entry.
func fingerprint(e Entry, rels []Relation) string {
	parts := []string{string(e.Kind), e.ID, e.Title, e.Names, e.Language, e.Type}
	for _, r := range rels {
		parts = append(parts, r.Target, r.Type)
	}
	return checksum.Fields(parts...)
}

// get returns the entry stored under kind and id.
func (db *DB) get(kind Kind, id string) (*Entry, error) {
	var e Entry
	err := db.conn.QueryRow(`
		SELECT kind, id, title, names, language, type, checksum, updated_at
		FROM entries WHERE kind = ? AND id = ?
	`, kind, id).Scan(&e.Kind, &e.ID, &e.Title, &e.Names, &e.Language, &e.Type, &e.Checksum, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNoEntry
	}
	if err != nil {
		return nil, fmt.Errorf("index: get: %w", err)
	}
	return &e, nil
}

// Count returns the number of entries of kind. An empty kind counts everything.
func (db *DB) Count(kind Kind) (int, error) {
	var n int
	var err error
	if kind == "" {
		err = db.conn.QueryRow(`SELECT count(*) FROM entries`).Scan(&n)
	} else {
		err = db.conn.QueryRow(`SELECT count(*) FROM entries WHERE kind = ?`, kind).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// Referrers returns every edge pointing at target: translations and
// commentaries of a text, or texts a person contributed to.
func (db *DB) Referrers(target string) ([]Relation, error) {
	rows, err := db.conn.Query(`
		SELECT source, target, type FROM relations
		WHERE target = ? ORDER BY source, type
	`, target)
	if err != nil {
		return nil, fmt.Errorf("index: referrers: %w", err)
	}
	defer rows.Close()

	var out []Relation
	for rows.Next() {
		var r Relation
		if err := rows.Scan(&r.Source, &r.Target, &r.Type); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Kind, &r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// joinLocalized flattens every localized value into one space separated
// string with a stable language order.
func joinLocalized(primary models.Localized, alts []models.Localized) string {
	var parts []string
	for _, l := range append([]models.Localized{primary}, alts...) {
		langs := make([]string, 0, len(l))
		for k := range l {
			langs = append(langs, k)
		}
		sort.Strings(langs)
		for _, k := range langs {
			if v := strings.TrimSpace(l[k]); v != "" {
				parts = append(parts, v)
			}
		}
	}
	return strings.Join(parts, " ")
}
