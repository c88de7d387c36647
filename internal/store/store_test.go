package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Simplici0/costestimator/internal/db"
	"github.com/Simplici0/costestimator/internal/migrations"
)

// exerciseStore runs the shared contract against any driver.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	require.NoError(t, s.Put(ctx, Record{ID: "estimate_a", Name: "Kitchen", SavedAt: base, GrandTotal: 304.7, Payload: []byte(`{"a":1}`)}))
	require.NoError(t, s.Put(ctx, Record{ID: "estimate_b", Name: "Bath", SavedAt: base.Add(time.Hour), GrandTotal: 99, Payload: []byte(`{"b":2}`)}))

	got, err := s.Get(ctx, "estimate_a")
	require.NoError(t, err)
	require.Equal(t, "Kitchen", got.Name)
	require.Equal(t, `{"a":1}`, string(got.Payload))
	require.True(t, got.SavedAt.Equal(base), "savedAt = %v", got.SavedAt)
	require.InDelta(t, 304.7, got.GrandTotal, 1e-9)

	list, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "estimate_b", list[0].ID, "newest first")
	require.Equal(t, "estimate_a", list[1].ID)

	// Put with an existing id replaces.
	require.NoError(t, s.Put(ctx, Record{ID: "estimate_a", Name: "Kitchen v2", SavedAt: base.Add(2 * time.Hour), Payload: []byte(`{}`)}))
	got, err = s.Get(ctx, "estimate_a")
	require.NoError(t, err)
	require.Equal(t, "Kitchen v2", got.Name)
	list, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "estimate_a", list[0].ID)

	require.NoError(t, s.Delete(ctx, "estimate_a"))
	_, err = s.Get(ctx, "estimate_a")
	require.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	require.True(t, errors.Is(s.Delete(ctx, "estimate_a"), ErrNotFound))

	require.Error(t, s.Put(ctx, Record{}))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	require.Equal(t, DriverMemory, s.Driver())
	exerciseStore(t, s)
}

func TestMemoryStore_CopiesPayload(t *testing.T) {
	s := NewMemory()
	payload := []byte("abc")
	require.NoError(t, s.Put(context.Background(), Record{ID: "x", Payload: payload}))
	payload[0] = 'z'

	got, err := s.Get(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, "abc", string(got.Payload))
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "store-test.db"))
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, DriverSQLite, s.Driver())
	exerciseStore(t, s)
}

func TestSQLiteStore_ReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), Record{ID: "keep", Name: "kept", SavedAt: time.Now(), Payload: []byte("{}")}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), "keep")
	require.NoError(t, err)
	require.Equal(t, "kept", got.Name)
}

func TestNewSQL_WrapsCallerDatabase(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "wrapped.db"))
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, migrations.Up(database, migrations.SQLiteDialect))

	s := NewSQL(database, DriverSQLite)
	require.Equal(t, DriverSQLite, s.Driver())
	require.Same(t, database, s.DB())
	exerciseStore(t, s)
}

func TestRebind(t *testing.T) {
	pg := &SQL{driver: DriverPostgres}
	require.Equal(t, "SELECT $1, $2", pg.rebind("SELECT ?, ?"))

	lite := &SQL{driver: DriverSQLite}
	require.Equal(t, "SELECT ?, ?", lite.rebind("SELECT ?, ?"))
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Driver: DriverMemory})
	require.NoError(t, err)
	require.Equal(t, DriverMemory, s.Driver())

	s, err = Open(ctx, Options{SQLitePath: filepath.Join(t.TempDir(), "default.db")})
	require.NoError(t, err)
	require.Equal(t, DriverSQLite, s.Driver())
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Driver: "floppy"})
	require.Error(t, err)

	_, err = Open(ctx, Options{Driver: DriverS3})
	require.Error(t, err, "bucket is required")
}
