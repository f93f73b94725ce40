package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"cotizador/internal/app"
)

var clinicsLimit int

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the loaded catalog",
}

var catalogClinicsCmd = &cobra.Command{
	Use:   "clinics [query]",
	Short: "Search clinic names",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalogClinics,
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print row counts of the catalog tables",
	RunE:  runCatalogStats,
}

func init() {
	catalogClinicsCmd.Flags().IntVarP(&clinicsLimit, "limit", "n", 20, "Maximum results")
	catalogCmd.AddCommand(catalogClinicsCmd)
	catalogCmd.AddCommand(catalogStatsCmd)
}

// openApp wires the service for a one-shot command. Backends get a single
// connection attempt.
func openApp(cmd *cobra.Command) (*app.App, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	zapLog, log := newLogger(cfg)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, log, app.Options{ServiceName: "cotizador-cli", ConnectRetries: 1})
	if err != nil {
		zapLog.Sync()
		return nil, nil, err
	}
	return a, func() {
		a.Close()
		zapLog.Sync()
	}, nil
}

func runCatalogClinics(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	names, err := a.Service.Clinics(cmd.Context(), query, clinicsLimit)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}

func runCatalogStats(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	cat, err := a.Catalog.Get(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), formatStats(cat.Stats()))
	return nil
}

func formatStats(stats map[string]int) string {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%-10s %d\n", k, stats[k])
	}
	return b.String()
}
