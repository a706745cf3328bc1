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
)

var loaddefsCmd = &cobra.Command{
	Use:   "loaddefs",
	Short: "Load a code-to-description lookup CSV into code_definitions",
	RunE:  runLoaddefs,
}

func init() {
	loaddefsCmd.Flags().StringVar(&cfg.FilePath, "file", "", "Path to definitions CSV (required)")
	_ = loaddefsCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(loaddefsCmd)
}

func runLoaddefs(cmd *cobra.Command, args []string) error {
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

	n, err := ingest.LoadDefinitions(ctx, pool, log, cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("definitions load failed")
		os.Exit(exitcode.WriteError)
	}

	fmt.Printf("Definitions loaded: %d codes\n", n)
	return nil
}
