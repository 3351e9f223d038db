// Package store persists resolved constellations. Two backends are
// provided: SQLite for local use and Postgres for shared deployments.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/litescript/ls-constellations/internal/resolver"
)

// ErrNotFound is returned when no constellation has the requested name.
var ErrNotFound = errors.New("constellation not found")

// Constellation is a resolved constellation as stored and served.
type Constellation struct {
	ID               uuid.UUID             `json:"id"`
	Name             string                `json:"name"`
	AstronomicalData []resolver.StarRecord `json:"astronomical_data"`
	GeneralInfo      string                `json:"general_info"`
	Connections      []string              `json:"connections"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// Store is the persistence contract shared by the backends.
type Store interface {
	// Upsert inserts c or replaces the constellation with the same name.
	// A zero ID is assigned; the existing ID is kept on replace.
	Upsert(ctx context.Context, c *Constellation) error
	GetByName(ctx context.Context, name string) (Constellation, error)
	// List returns every constellation ordered by name.
	List(ctx context.Context) ([]Constellation, error)
	Exists(ctx context.Context, name string) (bool, error)
	// Reset removes all constellations.
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the backend named by driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3":
		return NewSQLite(ctx, dsn)
	case DriverPostgres, "postgresql", "pgx":
		return NewPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}

func prepare(c *Constellation, now time.Time) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return errors.New("store: constellation name is required")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.AstronomicalData == nil {
		c.AstronomicalData = []resolver.StarRecord{}
	}
	if c.Connections == nil {
		c.Connections = []string{}
	}
	c.UpdatedAt = now.UTC()
	return nil
}
