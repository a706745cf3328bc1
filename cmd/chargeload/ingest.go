package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/chargeload/internal/db"
	"github.com/gyeh/chargeload/internal/exitcode"
	"github.com/gyeh/chargeload/internal/ingest"
	"github.com/gyeh/chargeload/internal/logging"
	"github.com/gyeh/chargeload/internal/mapping"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest one hospital's standard-charge file into the database",
	RunE:  runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to CSV or JSON source file (required)")
	f.StringVar(&cfg.MappingPath, "mapping", "", "Path to mapping descriptor JSON (required)")
	f.StringVar(&cfg.HospitalID, "hospital", "", "Hospital identifier (required)")
	_ = ingestCmd.MarkFlagRequired("file")
	_ = ingestCmd.MarkFlagRequired("mapping")
	_ = ingestCmd.MarkFlagRequired("hospital")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.ValidateWithDSN(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	if cfg.HospitalID == "" {
		log.Error().Msg("--hospital is required")
		os.Exit(exitcode.UsageError)
	}

	d, err := mapping.Load(cfg.MappingPath)
	if err != nil {
		log.Error().Err(err).Msg("mapping descriptor rejected")
		os.Exit(exitcode.ValidationError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	summary, err := ingest.Run(ctx, pool, log, d, cfg.HospitalID, cfg.FilePath)
	if err != nil {
		if pe, ok := err.(*ingest.PipelineError); ok {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("ingest failed")
			switch pe.Phase {
			case "open", "read":
				os.Exit(exitcode.ReadError)
			default:
				os.Exit(exitcode.WriteError)
			}
		}
		log.Error().Err(err).Msg("ingest failed")
		os.Exit(exitcode.WriteError)
	}

	fmt.Printf("Ingest complete: %d rows read, %d skipped, %d items, %d offers (%.1fs)\n",
		summary.RowsRead, summary.RowsSkipped, summary.ItemsCreated, summary.OffersCreated,
		summary.Duration.Seconds())
	return nil
}
