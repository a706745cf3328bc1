package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const upsertDefinition = `
INSERT INTO code_definitions (code, short_description, long_description)
VALUES ($1, $2, $3)
ON CONFLICT (code) DO UPDATE
SET short_description = EXCLUDED.short_description,
    long_description  = EXCLUDED.long_description`

// LoadDefinitions upserts the code-description lookup table from a CSV with
// columns code, short_description, long_description. Ingested items are not
// touched; the table is a sidecar for reporting joins.
func LoadDefinitions(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, csvPath string) (int64, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("open definitions: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read definitions header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	codeIdx, ok := col["code"]
	if !ok {
		return 0, fmt.Errorf("definitions file %s has no code column", csvPath)
	}
	shortIdx, hasShort := col["short_description"]
	longIdx, hasLong := col["long_description"]

	var n int64
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, fmt.Errorf("read definitions row: %w", err)
		}
		if codeIdx >= len(record) || record[codeIdx] == "" {
			continue
		}

		short := fieldOrNil(record, shortIdx, hasShort)
		long := fieldOrNil(record, longIdx, hasLong)
		if _, err := pool.Exec(ctx, upsertDefinition, record[codeIdx], short, long); err != nil {
			return n, fmt.Errorf("upsert definition %s: %w", record[codeIdx], err)
		}
		n++
	}

	log.Info().Int64("definitions", n).Str("file", csvPath).Msg("code definitions loaded")
	return n, nil
}

func fieldOrNil(record []string, idx int, present bool) *string {
	if !present || idx >= len(record) || record[idx] == "" {
		return nil
	}
	return &record[idx]
}
