package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "estimator",
		Short:   "Price construction actions and export saved estimates",
		Version: version,
		Long: `estimator works against the same rules catalog and estimate store as the
server. Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("catalog", "", "YAML catalog file (default: CATALOG_PATH or the built-in catalog)")

	priceCmd := &cobra.Command{
		Use:   "price <action-id> <quantity>",
		Short: "Resolve the materials and subtasks of one action",
		Args:  cobra.ExactArgs(2),
		RunE:  runPrice,
	}
	priceCmd.Flags().String("unit-price", "0", "Labor price per unit")
	priceCmd.Flags().Bool("json", false, "Print machine-readable output")

	searchCmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search actions by name",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().Bool("all", false, "Ignore the typeahead length and result limits")
	searchCmd.Flags().Bool("json", false, "Print machine-readable output")

	categoriesCmd := &cobra.Command{
		Use:   "categories",
		Short: "List catalog categories and their actions",
		RunE:  runCategories,
	}
	categoriesCmd.Flags().Bool("yaml", false, "Dump the catalog in the format --catalog reads")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved estimates, newest first",
		RunE:  runList,
	}

	exportCmd := &cobra.Command{
		Use:   "export <estimate-id>",
		Short: "Export a saved estimate as csv, json, xlsx or pdf",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().StringP("format", "f", "csv", "Export format: csv|json|xlsx|pdf")
	exportCmd.Flags().StringP("out", "o", "", "Output file (default: derived from the project name, - for stdout)")
	exportCmd.Flags().String("file", "", "Read the estimate from a JSON snapshot file instead of the store")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the sqlite or postgres store",
		RunE:  runMigrate,
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the demo estimates to the store",
		RunE:  runSeed,
	}
	seedCmd.Flags().Bool("refresh", false, "Rewrite demo estimates that already exist")

	rootCmd.AddCommand(priceCmd, searchCmd, categoriesCmd, listCmd, exportCmd, migrateCmd, seedCmd)
	return rootCmd
}
