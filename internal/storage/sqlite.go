// Package storage keeps a throwaway SQLite index of works.json for
// filtered queries. The JSON file stays the source of truth; the index is
// rebuilt from it on every use.
package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/subhylahiri/sitegen/internal/works"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// Entry is an indexed work with the project it belongs to.
type Entry struct {
	Project string `json:"project"`
	works.Work
}

const selectWorkFields = `project, id, kind, title, url, author, ref, year, month, same_as`

// OpenDB opens or creates a SQLite database at the given path.
// Use ":memory:" for an index that lives only as long as the DB.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS works (
			kind TEXT NOT NULL,
			id TEXT NOT NULL,
			project TEXT NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			author TEXT,
			ref TEXT,
			year INTEGER NOT NULL DEFAULT 0,
			month INTEGER NOT NULL DEFAULT 0,
			same_as TEXT,
			position INTEGER NOT NULL,
			PRIMARY KEY (kind, id)
		);

		CREATE INDEX IF NOT EXISTS idx_works_project ON works(project);

		CREATE VIRTUAL TABLE IF NOT EXISTS works_fts USING fts5(
			kind UNINDEXED,
			id UNINDEXED,
			title,
			author
		);
	`

	_, err := db.Exec(schema)
	return err
}

// Rebuild clears the index and fills it from a catalog. Works keep their
// catalog order as a tie-break for equal dates.
func (d *DB) Rebuild(cat *works.Catalog) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM works"); err != nil {
		return 0, fmt.Errorf("clearing works table: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM works_fts"); err != nil {
		return 0, fmt.Errorf("clearing works_fts table: %w", err)
	}

	workStmt, err := tx.Prepare(`
		INSERT INTO works (kind, id, project, title, url, author, ref, year, month, same_as, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing works insert: %w", err)
	}
	defer workStmt.Close()

	ftsStmt, err := tx.Prepare(`INSERT INTO works_fts (kind, id, title, author) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	n := 0
	for _, p := range cat.Projects {
		for _, k := range cat.Types.Kinds() {
			for _, w := range p.Of(k) {
				_, err := workStmt.Exec(
					string(w.Kind), w.ID, p.ID, w.Title, w.URL,
					nullableString(w.Author), nullableString(w.Ref),
					w.Year, w.Month, nullableString(w.SameAs), n,
				)
				if err != nil {
					return 0, fmt.Errorf("inserting %s %s: %w", w.Kind, w.ID, err)
				}
				if _, err := ftsStmt.Exec(string(w.Kind), w.ID, w.Title, w.Author); err != nil {
					return 0, fmt.Errorf("inserting fts for %s %s: %w", w.Kind, w.ID, err)
				}
				n++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return n, nil
}

// Filters narrows a listing. Zero values match everything.
type Filters struct {
	Kinds   []works.Kind // Any of these kinds
	Project string       // Exact project id
	Since   int          // Minimum year
	Query   string       // Full-text match on title and author
	Limit   int
}

// List returns matching works newest first, ties in catalog order.
func (d *DB) List(f Filters) ([]Entry, error) {
	query := `SELECT ` + selectWorkFields + ` FROM works WHERE 1=1`
	var args []any

	if len(f.Kinds) > 0 {
		query += " AND kind IN (?" + strings.Repeat(", ?", len(f.Kinds)-1) + ")"
		for _, k := range f.Kinds {
			args = append(args, string(k))
		}
	}
	if f.Project != "" {
		query += " AND project = ?"
		args = append(args, f.Project)
	}
	if f.Since > 0 {
		query += " AND year >= ?"
		args = append(args, f.Since)
	}
	if q := prepareFTSQuery(f.Query); q != "" {
		query += " AND (kind, id) IN (SELECT kind, id FROM works_fts WHERE works_fts MATCH ?)"
		args = append(args, q)
	}

	query += " ORDER BY year DESC, month DESC, position ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing works: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetByID returns every indexed work with the given id. Ids are unique per
// kind, so an article and its preprint may share one.
func (d *DB) GetByID(id string) ([]Entry, error) {
	rows, err := d.db.Query(`SELECT `+selectWorkFields+` FROM works WHERE id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", id, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Count returns the total number of indexed works.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM works").Scan(&count)
	return count, err
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind string
		var author, ref, sameAs sql.NullString
		err := rows.Scan(
			&e.Project, &e.ID, &kind, &e.Title, &e.URL,
			&author, &ref, &e.Year, &e.Month, &sameAs,
		)
		if err != nil {
			return nil, err
		}
		e.Kind = works.Kind(kind)
		e.Author = author.String
		e.Ref = ref.String
		e.SameAs = sameAs.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// nullableString converts a string to sql.NullString, treating empty as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	if strings.ContainsAny(query, "\"*+-:(){}[]^~.,") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}
