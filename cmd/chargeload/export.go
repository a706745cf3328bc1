package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/chargeload/internal/db"
	"github.com/gyeh/chargeload/internal/exitcode"
	"github.com/gyeh/chargeload/internal/export"
	"github.com/gyeh/chargeload/internal/logging"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write one hospital's normalized data to a Parquet snapshot",
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&cfg.HospitalID, "hospital", "", "Hospital identifier (required)")
	f.StringVar(&cfg.OutPath, "out", "", "Output Parquet path (required)")
	_ = exportCmd.MarkFlagRequired("hospital")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or DATABASE_URL is required")
		os.Exit(exitcode.UsageError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	n, err := export.Run(ctx, pool, log, cfg.HospitalID, cfg.OutPath)
	if err != nil {
		log.Error().Err(err).Msg("export failed")
		os.Exit(exitcode.WriteError)
	}

	fmt.Printf("Export complete: %d rows → %s\n", n, cfg.OutPath)
	return nil
}
