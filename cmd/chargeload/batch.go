package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/chargeload/internal/config"
	"github.com/gyeh/chargeload/internal/db"
	"github.com/gyeh/chargeload/internal/exitcode"
	"github.com/gyeh/chargeload/internal/ingest"
	"github.com/gyeh/chargeload/internal/logging"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Ingest every hospital listed in a YAML manifest",
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&cfg.ManifestPath, "manifest", "", "Path to batch manifest YAML (required)")
	_ = batchCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or DATABASE_URL is required")
		os.Exit(exitcode.UsageError)
	}

	manifest, err := config.LoadManifest(cfg.ManifestPath)
	if err != nil {
		log.Error().Err(err).Msg("manifest rejected")
		os.Exit(exitcode.ValidationError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	batch := ingest.RunBatch(ctx, pool, log, manifest)

	fmt.Printf("Batch complete: %d succeeded, %d failed, %d items, %d offers (%.1fs)\n",
		batch.Succeeded, batch.Failed, batch.TotalItems, batch.TotalOffers,
		batch.Duration.Seconds())
	for _, r := range batch.Results {
		if r.Err != nil {
			fmt.Printf("  FAILED %s: %v\n", r.HospitalID, r.Err)
		}
	}

	if batch.Failed > 0 {
		if batch.Succeeded == 0 {
			os.Exit(exitcode.WriteError)
		}
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}
