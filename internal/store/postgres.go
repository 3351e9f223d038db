package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS constellations (
    id                UUID PRIMARY KEY,
    name              TEXT NOT NULL,
    astronomical_data JSONB NOT NULL DEFAULT '[]',
    general_info      TEXT NOT NULL DEFAULT '',
    connections       JSONB NOT NULL DEFAULT '[]',
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS constellations_name_key ON constellations (lower(name));
`

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres connects to dsn, verifies the connection and applies the schema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgresFromPool wraps an existing pool. The schema is not applied.
func NewPostgresFromPool(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// Upsert implements Store.
func (p *Postgres) Upsert(ctx context.Context, c *Constellation) error {
	if err := prepare(c, time.Now()); err != nil {
		return err
	}
	data, conns, err := encodeJSON(c)
	if err != nil {
		return err
	}

	const q = `
	INSERT INTO constellations (id, name, astronomical_data, general_info, connections, updated_at)
	VALUES ($1::uuid, $2, $3::jsonb, $4, $5::jsonb, $6)
	ON CONFLICT ((lower(name))) DO UPDATE SET
	    astronomical_data = EXCLUDED.astronomical_data,
	    general_info      = EXCLUDED.general_info,
	    connections       = EXCLUDED.connections,
	    updated_at        = EXCLUDED.updated_at
	RETURNING id::text
	`
	var id string
	err = p.db.QueryRow(ctx, q, c.ID.String(), c.Name, string(data), c.GeneralInfo, string(conns), c.UpdatedAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("store: upsert %q: %w", c.Name, err)
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return fmt.Errorf("store: upsert %q: bad id %q: %w", c.Name, id, err)
	}
	return nil
}

const postgresColumns = `id::text, name, astronomical_data::text, general_info, connections::text, updated_at`

// GetByName implements Store.
func (p *Postgres) GetByName(ctx context.Context, name string) (Constellation, error) {
	row := p.db.QueryRow(ctx, "SELECT "+postgresColumns+" FROM constellations WHERE lower(name) = lower($1)", name)
	c, err := scanPostgres(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Constellation{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Constellation{}, fmt.Errorf("store: get %q: %w", name, err)
	}
	return c, nil
}

// List implements Store.
func (p *Postgres) List(ctx context.Context) ([]Constellation, error) {
	rows, err := p.db.Query(ctx, "SELECT "+postgresColumns+" FROM constellations ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	out := []Constellation{}
	for rows.Next() {
		c, err := scanPostgres(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return out, nil
}

// Exists implements Store.
func (p *Postgres) Exists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := p.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM constellations WHERE lower(name) = lower($1))", name).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("store: exists %q: %w", name, err)
	}
	return ok, nil
}

// Reset implements Store.
func (p *Postgres) Reset(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, "DELETE FROM constellations"); err != nil {
		return fmt.Errorf("store: reset: %w", err)
	}
	return nil
}

// Ping implements Store.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// Close implements Store.
func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}

func scanPostgres(row pgx.Row) (Constellation, error) {
	var (
		c           Constellation
		id          string
		data, conns string
	)
	if err := row.Scan(&id, &c.Name, &data, &c.GeneralInfo, &conns, &c.UpdatedAt); err != nil {
		return Constellation{}, err
	}
	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return Constellation{}, fmt.Errorf("bad id %q: %w", id, err)
	}
	if err := decodeJSON(&c, []byte(data), []byte(conns)); err != nil {
		return Constellation{}, err
	}
	return c, nil
}
