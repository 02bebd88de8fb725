package pictogram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pictograms (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    markup     TEXT NOT NULL,
    version    INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS pictograms_updated_at ON pictograms (updated_at DESC);
`

// SQLiteStore keeps pictograms in a local SQLite file. Timestamps are
// stored as Unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewSQLiteStore creates the schema if it is missing.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func (s *SQLiteStore) Create(ctx context.Context, p *Pictogram) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO pictograms (id, name, markup, version, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, p.ID, p.Name, p.Markup, p.Version, millis(p.CreatedAt), millis(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert pictogram: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Pictogram, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, name, markup, version, created_at, updated_at
        FROM pictograms
        WHERE id = ?
    `, id)

	var p Pictogram
	var created, updated int64
	if err := row.Scan(&p.ID, &p.Name, &p.Markup, &p.Version, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get pictogram: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = fromMillis(created), fromMillis(updated)
	return &p, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Pictogram, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, name, version, created_at, updated_at
        FROM pictograms
        ORDER BY updated_at DESC, id
    `)
	if err != nil {
		return nil, fmt.Errorf("list pictograms: %w", err)
	}
	defer rows.Close()

	out := []Pictogram{}
	for rows.Next() {
		var p Pictogram
		var created, updated int64
		if err := rows.Scan(&p.ID, &p.Name, &p.Version, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan pictogram: %w", err)
		}
		p.CreatedAt, p.UpdatedAt = fromMillis(created), fromMillis(updated)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveMarkup(ctx context.Context, id, markup string) (*Pictogram, error) {
	res, err := s.db.ExecContext(ctx, `
        UPDATE pictograms
        SET markup = ?, version = version + 1, updated_at = ?
        WHERE id = ?
    `, markup, millis(time.Now()), id)
	if err != nil {
		return nil, fmt.Errorf("save pictogram: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pictograms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pictogram: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
