package seed

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/Simplici0/costestimator/internal/catalog"
	"github.com/Simplici0/costestimator/internal/estimate"
	"github.com/Simplici0/costestimator/internal/store"
)

func seedConfig() Config {
	return Config{
		Rules:    catalog.Default(),
		Defaults: estimate.StandardDefaults(),
		Now:      func() time.Time { return time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC) },
	}
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	st, err := store.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		stats, err := Run(ctx, st, seedConfig())
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != len(demos) {
				t.Fatalf("expected %d inserts in first run, got %d", len(demos), stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 || stats.Updates != 0 {
			t.Fatalf("expected no writes in iteration %d, got %+v", i, stats)
		}
	}

	assertCount(t, st.DB(), `SELECT COUNT(*) FROM estimates`, nil, len(demos))
	assertCount(t, st.DB(), `SELECT COUNT(*) FROM estimates WHERE id = ?`, "estimate_demo_kitchen", 1)
	assertCount(t, st.DB(), `SELECT COUNT(*) FROM estimates WHERE id = ? AND name = ?`, []any{"estimate_demo_roof", "Demo: Roof Replacement"}, 1)
}

func TestRunRefreshCountsUpdates(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	if _, err := Run(ctx, st, seedConfig()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	cfg := seedConfig()
	cfg.Refresh = true
	stats, err := Run(ctx, st, cfg)
	if err != nil {
		t.Fatalf("refresh run: %v", err)
	}
	if stats.Inserts != 0 || stats.Updates != len(demos) {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestDemoEstimatesLoad(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	if _, err := Run(ctx, st, seedConfig()); err != nil {
		t.Fatalf("run seed: %v", err)
	}

	rec, err := st.Get(ctx, "estimate_demo_kitchen")
	if err != nil {
		t.Fatalf("get demo: %v", err)
	}
	var snap estimate.Snapshot
	if err := json.Unmarshal(rec.Payload, &snap); err != nil {
		t.Fatalf("decode demo: %v", err)
	}
	e, err := estimate.FromSnapshot(catalog.Default(), estimate.StandardDefaults(), snap)
	if err != nil {
		t.Fatalf("rebuild demo: %v", err)
	}
	if len(e.Locations) != 2 || len(e.Locations[0].Actions) != 3 {
		t.Fatalf("unexpected demo layout: %d locations", len(e.Locations))
	}
	if issues := e.Validate(); len(issues) != 0 {
		t.Fatalf("demo has issues: %+v", issues)
	}
	if got := e.Totals().GrandTotal; got <= 0 || got != rec.GrandTotal {
		t.Fatalf("grand total = %v, record says %v", got, rec.GrandTotal)
	}
}

func assertCount(t *testing.T, database *sql.DB, query string, args any, expected int) {
	t.Helper()

	var count int
	var err error
	switch v := args.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&count)
	case []any:
		err = database.QueryRow(query, v...).Scan(&count)
	default:
		err = database.QueryRow(query, v).Scan(&count)
	}
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}
