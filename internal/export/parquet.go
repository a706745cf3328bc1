// Package export writes a hospital's normalized items and offers to a Parquet
// snapshot, the interchange format downstream analysis tooling reads.
package export

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	goparquet "github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"github.com/gyeh/chargeload/internal/model"
)

const snapshotQuery = `
SELECT i.hospital_id, i.code, i.code_type, i.description, i.setting,
       p.payer, p.plan, p.amount, p.percentage, p.notes
FROM items i
JOIN prices p ON p.item_id = i.id
WHERE i.hospital_id = $1
ORDER BY i.code, p.payer`

// WriteSnapshot writes rows to w in Parquet format.
func WriteSnapshot(w io.Writer, rows []model.ExportRow) error {
	writer := goparquet.NewGenericWriter[model.ExportRow](w,
		goparquet.Compression(&goparquet.Snappy),
	)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write snapshot rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close snapshot writer: %w", err)
	}
	return nil
}

// ReadSnapshot reads a whole snapshot file back into memory. Snapshots are
// per-hospital and bounded by hospital file size, so whole-file reads are
// fine.
func ReadSnapshot(path string) ([]model.ExportRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	pf, err := goparquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open snapshot parquet: %w", err)
	}
	reader := goparquet.NewGenericReader[model.ExportRow](pf)
	defer reader.Close()

	var all []model.ExportRow
	buf := make([]model.ExportRow, 256)
	for {
		n, readErr := reader.Read(buf)
		all = append(all, buf[:n]...)
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read snapshot: %w", readErr)
		}
	}
	return all, nil
}

// Run queries one hospital's normalized data and writes it to outPath.
func Run(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, hospitalID, outPath string) (int64, error) {
	rows, err := pool.Query(ctx, snapshotQuery, hospitalID)
	if err != nil {
		return 0, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var out []model.ExportRow
	for rows.Next() {
		var r model.ExportRow
		if err := rows.Scan(&r.HospitalID, &r.Code, &r.CodeType, &r.Description,
			&r.Setting, &r.Payer, &r.Plan, &r.Amount, &r.Percentage, &r.Notes); err != nil {
			return 0, fmt.Errorf("scan snapshot row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("read snapshot rows: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("create snapshot file: %w", err)
	}
	if err := WriteSnapshot(f, out); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close snapshot file: %w", err)
	}

	log.Info().
		Str("hospital", hospitalID).
		Str("out", outPath).
		Int("rows", len(out)).
		Msg("snapshot written")

	return int64(len(out)), nil
}
