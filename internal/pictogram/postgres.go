package pictogram

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS pictograms (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    markup     TEXT NOT NULL,
    version    INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS pictograms_updated_at ON pictograms (updated_at DESC);
`

// PostgresStore keeps pictograms in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPool connects to databaseURL and checks the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewPostgresStore creates the schema if it is missing.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, p *Pictogram) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO pictograms (id, name, markup, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, p.ID, p.Name, p.Markup, p.Version, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert pictogram: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Pictogram, error) {
	var p Pictogram
	err := s.pool.QueryRow(ctx, `
        SELECT id, name, markup, version, created_at, updated_at
        FROM pictograms
        WHERE id = $1
    `, id).Scan(&p.ID, &p.Name, &p.Markup, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get pictogram: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Pictogram, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, name, version, created_at, updated_at
        FROM pictograms
        ORDER BY updated_at DESC, id
    `)
	if err != nil {
		return nil, fmt.Errorf("list pictograms: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Pictogram, error) {
		var p Pictogram
		err := row.Scan(&p.ID, &p.Name, &p.Version, &p.CreatedAt, &p.UpdatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan pictograms: %w", err)
	}
	if out == nil {
		out = []Pictogram{}
	}
	return out, nil
}

func (s *PostgresStore) SaveMarkup(ctx context.Context, id, markup string) (*Pictogram, error) {
	var p Pictogram
	err := s.pool.QueryRow(ctx, `
        UPDATE pictograms
        SET markup = $2, version = version + 1, updated_at = now()
        WHERE id = $1
        RETURNING id, name, markup, version, created_at, updated_at
    `, id, markup).Scan(&p.ID, &p.Name, &p.Markup, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("save pictogram: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pictograms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pictogram: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
