package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-constellations/internal/resolver"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func f(v float64) *float64 { return &v }

func canisMajor() *Constellation {
	return &Constellation{
		Name: "Canis Major",
		AstronomicalData: []resolver.StarRecord{
			{
				Name: "Alpha CMa", RA: f(101.2872), Dec: f(-16.7161),
				PMRA: f(-546.01), PMDec: f(-1223.07), Distance: f(2.64),
				Cartesian:         []float64{-0.494, -0.759, 2.478},
				CartesianVelocity: []float64{1, 2, 3},
			},
			{Name: "Beta CMa", RA: f(95.675), Dec: f(-17.956)},
		},
		GeneralInfo: "The greater dog.",
		Connections: []string{"* alf CMa-* bet CMa"},
	}
}

// backends runs fn against every available Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestStore(t)) })

	dsn := os.Getenv("LSC_TEST_PG_DSN")
	t.Run("postgres", func(t *testing.T) {
		if dsn == "" {
			t.Skip("LSC_TEST_PG_DSN not set")
		}
		ctx := context.Background()
		s, err := NewPostgres(ctx, dsn)
		if err != nil {
			t.Skipf("cannot connect to test database: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		require.NoError(t, s.Reset(ctx))
		fn(t, s)
	})
}

func TestStore_UpsertAndGet(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := canisMajor()
		require.NoError(t, s.Upsert(ctx, c))
		require.NotEqual(t, uuid.Nil, c.ID)
		require.False(t, c.UpdatedAt.IsZero())

		got, err := s.GetByName(ctx, "canis major")
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
		assert.Equal(t, "Canis Major", got.Name)
		assert.Equal(t, "The greater dog.", got.GeneralInfo)
		assert.Equal(t, c.Connections, got.Connections)
		require.Len(t, got.AstronomicalData, 2)
		assert.Equal(t, c.AstronomicalData[0], got.AstronomicalData[0])
		assert.Nil(t, got.AstronomicalData[1].Distance)
		assert.Nil(t, got.AstronomicalData[1].Cartesian)
	})
}

func TestStore_UpsertReplacesByName(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		first := canisMajor()
		require.NoError(t, s.Upsert(ctx, first))

		second := &Constellation{Name: "Canis Major", GeneralInfo: "updated"}
		require.NoError(t, s.Upsert(ctx, second))
		assert.Equal(t, first.ID, second.ID, "replace keeps the original id")

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "updated", all[0].GeneralInfo)
		assert.Empty(t, all[0].AstronomicalData)
		assert.NotNil(t, all[0].Connections)
	})
}

func TestStore_NotFound(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		_, err := s.GetByName(context.Background(), "Nope")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestStore_ListExistsReset(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)

		for _, name := range []string{"Orion", "Lyra", "Canis Major"} {
			require.NoError(t, s.Upsert(ctx, &Constellation{Name: name}))
		}

		all, err = s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Canis Major", all[0].Name)
		assert.Equal(t, "Orion", all[2].Name)

		ok, err := s.Exists(ctx, "LYRA")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, s.Reset(ctx))
		ok, err = s.Exists(ctx, "Lyra")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Ping(ctx))
	})
}

func TestStore_RejectsEmptyName(t *testing.T) {
	s := newTestStore(t)
	err := s.Upsert(context.Background(), &Constellation{Name: "  "})
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(ctx, "mongodb", "mongodb://localhost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
