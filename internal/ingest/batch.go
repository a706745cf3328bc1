package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/chargeload/internal/config"
	"github.com/gyeh/chargeload/internal/mapping"
	"github.com/gyeh/chargeload/internal/model"
)

// RunBatch ingests every hospital in the manifest sequentially. A failure in
// one hospital is recorded and the batch moves on; earlier hospitals keep
// their loaded data either way.
func RunBatch(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, manifest *config.Manifest) *model.BatchSummary {
	start := time.Now()
	batch := &model.BatchSummary{}

	for _, entry := range manifest.Hospitals {
		result := model.HospitalResult{HospitalID: entry.HospitalID}

		summary, err := runEntry(ctx, pool, log, entry)
		if err != nil {
			result.Err = err
			batch.Failed++
			log.Error().
				Err(err).
				Str("hospital", entry.HospitalID).
				Str("file", entry.File).
				Msg("hospital ingest failed")
		} else {
			result.Summary = summary
			batch.Succeeded++
			batch.TotalItems += summary.ItemsCreated
			batch.TotalOffers += summary.OffersCreated
		}
		batch.Results = append(batch.Results, result)

		if ctx.Err() != nil {
			break
		}
	}

	batch.Duration = time.Since(start)

	log.Info().
		Int("succeeded", batch.Succeeded).
		Int("failed", batch.Failed).
		Int64("total_items", batch.TotalItems).
		Int64("total_offers", batch.TotalOffers).
		Dur("duration", batch.Duration).
		Msg("batch complete")

	return batch
}

func runEntry(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, entry config.BatchEntry) (*model.IngestSummary, error) {
	d, err := mapping.Load(entry.Mapping)
	if err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", entry.Mapping, err)
	}
	return Run(ctx, pool, log, d, entry.HospitalID, entry.File)
}
