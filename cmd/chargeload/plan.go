package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gyeh/chargeload/internal/exitcode"
	"github.com/gyeh/chargeload/internal/ingest"
	"github.com/gyeh/chargeload/internal/logging"
	"github.com/gyeh/chargeload/internal/mapping"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run extraction and stats (no writes)",
	RunE:  runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to CSV or JSON source file (required)")
	f.StringVar(&cfg.MappingPath, "mapping", "", "Path to mapping descriptor JSON (required)")
	_ = planCmd.MarkFlagRequired("file")
	_ = planCmd.MarkFlagRequired("mapping")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	d, err := mapping.Load(cfg.MappingPath)
	if err != nil {
		log.Error().Err(err).Msg("mapping descriptor rejected")
		os.Exit(exitcode.ValidationError)
	}

	stat, err := os.Stat(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to stat file")
		os.Exit(exitcode.ValidationError)
	}

	report, err := ingest.Plan(log, d, cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("plan failed")
		os.Exit(exitcode.ReadError)
	}

	fmt.Println("=== chargeload plan ===")
	fmt.Printf("File:         %s\n", cfg.FilePath)
	fmt.Printf("Size:         %d bytes\n", stat.Size())
	fmt.Printf("Format:       %s (%s payer style)\n", d.FormatType, d.PriceExtraction.PayerStyle)
	fmt.Printf("Rows read:    %d\n", report.RowsRead)
	fmt.Printf("Rows skipped: %d\n", report.RowsSkipped)
	fmt.Printf("Items:        %d\n", report.Items)
	fmt.Printf("Offers:       %d\n", report.Offers)
	fmt.Println()

	fmt.Println("Code scheme distribution:")
	schemes := make([]string, 0, len(report.Schemes))
	for s := range report.Schemes {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	for _, s := range schemes {
		fmt.Printf("  %-10s %d items\n", s, report.Schemes[s])
	}

	if len(report.Diagnostics.MissingColumns) > 0 {
		fmt.Println()
		fmt.Println("Missing columns:")
		cols := make([]string, 0, len(report.Diagnostics.MissingColumns))
		for c := range report.Diagnostics.MissingColumns {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		for _, c := range cols {
			fmt.Printf("  %-40s %d rows\n", c, report.Diagnostics.MissingColumns[c])
		}
	}
	if report.Diagnostics.NotePrices > 0 {
		fmt.Printf("\nPrices kept as notes: %d\n", report.Diagnostics.NotePrices)
	}
	if report.Diagnostics.HeaderStyleColumnsSeen > 0 {
		fmt.Printf("Header-style price cells under column style: %d (check the descriptor)\n",
			report.Diagnostics.HeaderStyleColumnsSeen)
	}

	return nil
}
