package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// sqliteSchema is executed on every open.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS constellations (
    id                TEXT PRIMARY KEY,
    name              TEXT NOT NULL UNIQUE COLLATE NOCASE,
    astronomical_data TEXT NOT NULL DEFAULT '[]',
    general_info      TEXT NOT NULL DEFAULT '',
    connections       TEXT NOT NULL DEFAULT '[]',
    updated_at        TIMESTAMP NOT NULL
);
`

// SQLite implements Store on a local SQLite database in WAL mode.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	// SQLite has a single writer; one connection also keeps :memory: databases
	// from splitting across pooled connections.
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Upsert implements Store.
func (s *SQLite) Upsert(ctx context.Context, c *Constellation) error {
	if err := prepare(c, time.Now()); err != nil {
		return err
	}
	data, conns, err := encodeJSON(c)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO constellations (id, name, astronomical_data, general_info, connections, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
		    astronomical_data = excluded.astronomical_data,
		    general_info      = excluded.general_info,
		    connections       = excluded.connections,
		    updated_at        = excluded.updated_at
		RETURNING id`
	var id string
	err = s.db.QueryRowContext(ctx, q, c.ID.String(), c.Name, data, c.GeneralInfo, conns, c.UpdatedAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("store: upsert %q: %w", c.Name, err)
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return fmt.Errorf("store: upsert %q: bad id %q: %w", c.Name, id, err)
	}
	return nil
}

const sqliteColumns = `id, name, astronomical_data, general_info, connections, updated_at`

// GetByName implements Store. Names match case-insensitively.
func (s *SQLite) GetByName(ctx context.Context, name string) (Constellation, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sqliteColumns+" FROM constellations WHERE name = ?", name)
	c, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Constellation{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Constellation{}, fmt.Errorf("store: get %q: %w", name, err)
	}
	return c, nil
}

// List implements Store.
func (s *SQLite) List(ctx context.Context) ([]Constellation, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+sqliteColumns+" FROM constellations ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	out := []Constellation{}
	for rows.Next() {
		c, err := scanSQLite(rows)
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
func (s *SQLite) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM constellations WHERE name = ?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: exists %q: %w", name, err)
	}
	return n > 0, nil
}

// Reset implements Store.
func (s *SQLite) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM constellations"); err != nil {
		return fmt.Errorf("store: reset: %w", err)
	}
	return nil
}

// Ping implements Store.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(sc scanner) (Constellation, error) {
	var (
		c           Constellation
		id          string
		data, conns string
	)
	if err := sc.Scan(&id, &c.Name, &data, &c.GeneralInfo, &conns, &c.UpdatedAt); err != nil {
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

func encodeJSON(c *Constellation) (data, conns []byte, err error) {
	if data, err = json.Marshal(c.AstronomicalData); err != nil {
		return nil, nil, fmt.Errorf("store: encode stars of %q: %w", c.Name, err)
	}
	if conns, err = json.Marshal(c.Connections); err != nil {
		return nil, nil, fmt.Errorf("store: encode connections of %q: %w", c.Name, err)
	}
	return data, conns, nil
}

func decodeJSON(c *Constellation, data, conns []byte) error {
	if err := json.Unmarshal(data, &c.AstronomicalData); err != nil {
		return fmt.Errorf("decode stars of %q: %w", c.Name, err)
	}
	if err := json.Unmarshal(conns, &c.Connections); err != nil {
		return fmt.Errorf("decode connections of %q: %w", c.Name, err)
	}
	return nil
}
