package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gyeh/chargeload/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "chargeload",
	Short: "Hospital price-transparency file → Postgres normalization engine",
	Long: "Extracts billable items and priced offers from hospital standard-charge\n" +
		"files (CSV or JSON, shaped per a mapping descriptor) and loads them into\n" +
		"Postgres via the COPY protocol.",
}

func init() {
	// .env is a developer convenience; absence is not an error.
	_ = godotenv.Load()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("DATABASE_URL"), "Postgres connection string (or set DATABASE_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
}
