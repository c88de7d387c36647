package migrations

import (
	"path/filepath"
	"testing"

	"github.com/Simplici0/costestimator/internal/db"
)

func TestUp_CreatesEstimatesTableAndIsRepeatable(t *testing.T) {
	t.Parallel()

	database, err := db.Open(filepath.Join(t.TempDir(), "migrate-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := Up(database, SQLiteDialect); err != nil {
		t.Fatalf("first up: %v", err)
	}
	if err := Up(database, SQLiteDialect); err != nil {
		t.Fatalf("second up: %v", err)
	}

	if _, err := database.Exec(`INSERT INTO estimates (id, name, saved_at, grand_total, payload) VALUES ('e1', 'n', 1, 2.5, '{}')`); err != nil {
		t.Fatalf("insert into estimates: %v", err)
	}

	v, err := Version(database, SQLiteDialect)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 1 {
		t.Fatalf("version = %d, want 1", v)
	}
}

func TestUp_UnknownDialect(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "dialect-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := Up(database, "nosuchdb"); err == nil {
		t.Fatalf("expected dialect error")
	}
}
