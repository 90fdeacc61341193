// Package sqlite is a document store on SQLite FTS5, ranked with bm25.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	_ "modernc.org/sqlite"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/docstore"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/sqlitemigrate"
)

var _ docstore.Store = (*Store)(nil)

var migrations = []sqlitemigrate.Migration{
	{
		Version:     1,
		Description: "documents with full-text index",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS documents (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT UNIQUE NOT NULL,
    project_code TEXT NOT NULL,
    text TEXT NOT NULL,
    source_type TEXT NOT NULL DEFAULT '',
    source_version TEXT NOT NULL DEFAULT '',
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_code);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
    text,
    content=documents,
    content_rowid=seq
);

CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
    INSERT INTO documents_fts(rowid, text) VALUES (new.seq, new.text);
END;

CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
    INSERT INTO documents_fts(documents_fts, rowid, text) VALUES ('delete', old.seq, old.text);
END;
`)
			return err
		},
	},
}

// Store keeps documents in a SQLite database.
type Store struct {
	conn *sql.DB
}

// Open creates or opens the document database at dsn.
func Open(dsn string) (*Store, error) {
	dbPath := strings.TrimPrefix(dsn, "sqlite://")
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite path")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening document database: %w", err)
	}
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting %q: %w", pragma, err)
		}
	}
	if err := sqlitemigrate.Apply(conn, "document store", migrations); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating document schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Add inserts all documents in one transaction.
func (s *Store) Add(ctx context.Context, docs []project.Document) ([]string, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, project_code, text, source_type, source_version) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		id := docstore.NewID(d.ProjectCode)
		if _, err := stmt.ExecContext(ctx, id, d.ProjectCode, d.Text, d.Source.Type, d.Source.Version); err != nil {
			return nil, fmt.Errorf("inserting document: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing documents: %w", err)
	}
	return ids, nil
}

// Query ranks the project's documents against query with bm25. When fewer
// than k documents share a word with the query, the rest of the project's
// documents follow in insertion order, so a project with documents always
// yields min(k, count) passages.
func (s *Store) Query(ctx context.Context, projectCode, query string, k int) ([]project.RetrievedDocument, error) {
	docs := []project.RetrievedDocument{}
	if k <= 0 {
		return docs, nil
	}
	seen := make(map[string]bool, k)

	if ftsQuery := toFTSQuery(query); ftsQuery != "" {
		rows, err := s.conn.QueryContext(ctx, `
SELECT d.id, d.project_code, d.text, d.source_type, d.source_version
FROM documents_fts
JOIN documents d ON documents_fts.rowid = d.seq
WHERE documents_fts MATCH ?
  AND d.project_code = ?
ORDER BY bm25(documents_fts), d.seq
LIMIT ?
`, ftsQuery, projectCode, k)
		if err != nil {
			return nil, fmt.Errorf("searching documents: %w", err)
		}
		if docs, err = appendDocuments(rows, docs, seen, k); err != nil {
			return nil, err
		}
	}
	if len(docs) == k {
		return docs, nil
	}

	// At most len(docs) of the first k rows were matched above, so k rows
	// always hold enough unseen documents to fill the remainder.
	rows, err := s.conn.QueryContext(ctx, `
SELECT id, project_code, text, source_type, source_version
FROM documents
WHERE project_code = ?
ORDER BY seq
LIMIT ?
`, projectCode, k)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return appendDocuments(rows, docs, seen, k)
}

func appendDocuments(rows *sql.Rows, docs []project.RetrievedDocument, seen map[string]bool, k int) ([]project.RetrievedDocument, error) {
	defer rows.Close()
	for rows.Next() {
		var d project.RetrievedDocument
		if err := rows.Scan(&d.ID, &d.ProjectCode, &d.Text, &d.Source.Type, &d.Source.Version); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if seen[d.ID] || len(docs) == k {
			continue
		}
		seen[d.ID] = true
		d.Rank = len(docs) + 1
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// toFTSQuery turns a free-text question into an OR of quoted terms, so any
// shared word matches and bm25 orders the rest. FTS5 operators in the input
// are treated as plain words.
func toFTSQuery(query string) string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(words))
	var terms []string
	for _, w := range words {
		if len([]rune(w)) < 2 || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}
