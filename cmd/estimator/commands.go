package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/costestimator/internal/catalog"
	"github.com/Simplici0/costestimator/internal/config"
	"github.com/Simplici0/costestimator/internal/db"
	"github.com/Simplici0/costestimator/internal/estimate"
	"github.com/Simplici0/costestimator/internal/export"
	"github.com/Simplici0/costestimator/internal/migrations"
	"github.com/Simplici0/costestimator/internal/money"
	"github.com/Simplici0/costestimator/internal/pricing"
	"github.com/Simplici0/costestimator/internal/seed"
	"github.com/Simplici0/costestimator/internal/store"
)

// loadConfig is swapped in tests so commands never read the real environment.
var loadConfig = config.Load

func loadCatalog(cmd *cobra.Command, cfg config.Config) (*catalog.Catalog, error) {
	path, _ := cmd.Flags().GetString("catalog")
	if path == "" {
		path = cfg.CatalogPath
	}
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(path)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type priceOutput struct {
	Action   string  `json:"action"`
	Quantity float64 `json:"quantity"`
	pricing.Resolution
	Totals pricing.ActionTotals `json:"totals"`
}

func runPrice(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	rules, err := loadCatalog(cmd, cfg)
	if err != nil {
		return err
	}

	ruleID := args[0]
	quantity := estimate.ParseAmount(args[1])
	rawPrice, _ := cmd.Flags().GetString("unit-price")
	asJSON, _ := cmd.Flags().GetBool("json")

	rule, ok := rules.FindRule(ruleID)
	if !ok {
		fmt.Fprintf(cmd.ErrOrStderr(), "unknown action %q prices as zero\n", ruleID)
		rule = catalog.ActionRule{ID: ruleID, Name: ruleID}
	}

	res := pricing.Resolve(rules, ruleID, quantity)
	totals := pricing.RollupAction(pricing.ActionInput{
		Quantity:     quantity,
		UnitPrice:    estimate.ParseAmount(rawPrice),
		MaterialCost: res.TotalMaterialCost,
	})

	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, priceOutput{Action: ruleID, Quantity: quantity, Resolution: res, Totals: totals})
	}

	fmt.Fprintf(out, "%s: %s %s\n", rule.Name, formatQuantity(quantity), rule.DefaultUnit)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tQTY\tUNIT\tCOST/UNIT\tTOTAL")
	for _, group := range [][]pricing.LineItem{res.Materials, res.Subtasks} {
		for _, item := range group {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				item.Name, formatQuantity(item.Quantity), item.Unit,
				money.Currency(item.CostPerUnit), money.Currency(item.TotalCost))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Materials: %s\nLabor: %s\nTotal: %s\n",
		money.Currency(totals.MaterialCost), money.Currency(totals.LaborCost), money.Currency(totals.TotalPrice))
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	rules, err := loadCatalog(cmd, cfg)
	if err != nil {
		return err
	}
	all, _ := cmd.Flags().GetBool("all")
	asJSON, _ := cmd.Flags().GetBool("json")

	var results []catalog.SearchResult
	if all {
		results = rules.SearchByName(args[0])
	} else {
		results = rules.Typeahead(args[0], cfg.SearchMinChars, cfg.SearchMaxResults)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if results == nil {
			results = []catalog.SearchResult{}
		}
		return writeJSON(out, results)
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "No matching actions")
		return nil
	}
	for _, group := range results {
		fmt.Fprintln(out, group.Category)
		for _, rule := range group.Rules {
			fmt.Fprintf(out, "  %-24s %s\n", rule.ID, rule.Name)
		}
	}
	return nil
}

func runCategories(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	rules, err := loadCatalog(cmd, cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if dump, _ := cmd.Flags().GetBool("yaml"); dump {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(rules); err != nil {
			return fmt.Errorf("encode catalog yaml: %w", err)
		}
		return enc.Close()
	}

	for _, cat := range rules.Categories() {
		fmt.Fprintf(out, "%s (%d)\n", cat.Name, len(cat.Rules))
		for _, rule := range cat.Rules {
			fmt.Fprintf(out, "  %-24s %-28s %s\n", rule.ID, rule.Name, rule.DefaultUnit)
		}
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	st, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("open estimate store: %w", err)
	}
	return st, nil
}

func runList(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	ctx := cmd.Context()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	list, err := st.List(ctx)
	if err != nil {
		return fmt.Errorf("list estimates: %w", err)
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSAVED\tGRAND TOTAL")
	for _, sum := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", sum.ID, sum.Name, sum.SavedAt.Local().Format("2006-01-02 15:04"), money.Currency(sum.GrandTotal))
	}
	return tw.Flush()
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	ctx := cmd.Context()

	rawFormat, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return err
	}
	file, _ := cmd.Flags().GetString("file")
	outPath, _ := cmd.Flags().GetString("out")

	var payload []byte
	switch {
	case file != "":
		if payload, err = os.ReadFile(file); err != nil {
			return fmt.Errorf("read snapshot file: %w", err)
		}
	case len(args) == 1:
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		rec, err := st.Get(ctx, args[0])
		if err != nil {
			return err
		}
		payload = rec.Payload
	default:
		return fmt.Errorf("export needs an estimate id or --file")
	}

	rules, err := loadCatalog(cmd, cfg)
	if err != nil {
		return err
	}
	var snap estimate.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("decode estimate: %w", err)
	}
	// Rebuild so the export reflects the current catalog prices.
	e, err := estimate.FromSnapshot(rules, cfg.EstimateDefaults(), snap)
	if err != nil {
		return err
	}
	body, err := export.Render(format, e.Snapshot())
	if err != nil {
		return err
	}

	if outPath == "-" {
		_, err := cmd.OutOrStdout().Write(body)
		return err
	}
	if outPath == "" {
		outPath = export.Filename(e.Project.Name) + "." + string(format)
	}
	if err := os.WriteFile(outPath, body, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", outPath, len(body))
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	var (
		database *sql.DB
		dialect  string
		err      error
	)
	switch store.Driver(cfg.StoreDriver) {
	case store.DriverSQLite:
		database, err = db.Open(cfg.DBPath)
		dialect = migrations.SQLiteDialect
	case store.DriverPostgres:
		database, err = db.OpenPostgres(cmd.Context(), cfg.PostgresDSN)
		dialect = migrations.PostgresDialect
	default:
		return fmt.Errorf("store driver %s has no schema to migrate", cfg.StoreDriver)
	}
	if err != nil {
		return err
	}
	defer database.Close()

	if err := migrations.Up(database, dialect); err != nil {
		return err
	}
	v, err := migrations.Version(database, dialect)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n", cfg.StoreDriver, v)
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	ctx := cmd.Context()
	rules, err := loadCatalog(cmd, cfg)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	refresh, _ := cmd.Flags().GetBool("refresh")
	stats, err := seed.Run(ctx, st, seed.Config{Rules: rules, Defaults: cfg.EstimateDefaults(), Refresh: refresh})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d new, %d refreshed\n", stats.Inserts, stats.Updates)
	return nil
}

func formatQuantity(q float64) string {
	s := fmt.Sprintf("%.2f", q)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
