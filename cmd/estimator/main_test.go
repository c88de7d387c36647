package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Simplici0/costestimator/internal/catalog"
	"github.com/Simplici0/costestimator/internal/config"
)

func useConfig(t *testing.T, cfg config.Config) {
	t.Helper()
	prev := loadConfig
	loadConfig = func() config.Config { return cfg }
	t.Cleanup(func() { loadConfig = prev })
}

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "cli.db")
	return cfg
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPriceCommand(t *testing.T) {
	useConfig(t, config.Default())

	out, err := run(t, "price", "drywall_hang", "320", "--unit-price", "1.25")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	for _, want := range []string{"Hang Drywall: 320 Sq. Ft", "Materials: $172.50", "Labor: $400.00", "Total: $572.50"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPriceCommand_JSON(t *testing.T) {
	useConfig(t, config.Default())

	out, err := run(t, "price", "paint_interior", "100", "--json")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	var got priceOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.TotalMaterialCost != 77 || len(got.Materials) != 4 {
		t.Fatalf("unexpected output %+v", got)
	}
}

func TestSearchCommand(t *testing.T) {
	useConfig(t, config.Default())

	out, err := run(t, "search", "p")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "No matching actions") {
		t.Fatalf("short query should match nothing:\n%s", out)
	}

	out, err = run(t, "search", "roof", "--json")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var results []catalog.SearchResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected roof matches")
	}
}

func TestCategoriesYAMLRoundTrips(t *testing.T) {
	useConfig(t, config.Default())

	out, err := run(t, "categories", "--yaml")
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	c, err := catalog.LoadYAML(strings.NewReader(out))
	if err != nil {
		t.Fatalf("reload dumped catalog: %v", err)
	}
	if c.Len() != catalog.Default().Len() {
		t.Fatalf("reloaded %d rules, want %d", c.Len(), catalog.Default().Len())
	}
}

func TestSeedListExport(t *testing.T) {
	cfg := sqliteConfig(t)
	useConfig(t, cfg)

	if _, err := run(t, "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	out, err := run(t, "seed")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "seeded 2 new") {
		t.Fatalf("unexpected seed output %q", out)
	}

	out, err = run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "estimate_demo_kitchen") {
		t.Fatalf("list missing demo:\n%s", out)
	}

	target := filepath.Join(t.TempDir(), "kitchen.csv")
	if _, err := run(t, "export", "estimate_demo_kitchen", "--out", target); err != nil {
		t.Fatalf("export: %v", err)
	}
	body, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(body), "Location,Action,Quantity,Unit,Unit Price,Total Price") {
		t.Fatalf("unexpected csv:\n%s", body)
	}

	if _, err := run(t, "export", "estimate_missing", "--out", "-"); err == nil {
		t.Fatalf("expected error for missing estimate")
	}
}

func TestMigrate_RejectsSchemaLessDriver(t *testing.T) {
	cfg := config.Default()
	cfg.StoreDriver = "s3"
	useConfig(t, cfg)

	if _, err := run(t, "migrate"); err == nil {
		t.Fatalf("expected error for s3 driver")
	}
}
