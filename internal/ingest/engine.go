// Package ingest drives the normalization engine over whole source files:
// streaming rows, assembling them through the resolvers, and upserting the
// result into the store with delete-then-rebuild idempotency per hospital.
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/chargeload/internal/db"
	"github.com/gyeh/chargeload/internal/extract"
	"github.com/gyeh/chargeload/internal/mapping"
	"github.com/gyeh/chargeload/internal/model"
	"github.com/gyeh/chargeload/internal/rowsource"
)

// flushBatchSize bounds memory: final state is identical whether flushed
// every row or once at the end, so the size is purely a throughput knob.
const flushBatchSize = 1000

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Run ingests one hospital's source file. Existing items (and their offers,
// by cascade) for the hospital are deleted first, so re-running is
// equivalent to a single clean run. Concurrent runs for different hospitals
// are safe; runs for the same hospital must be serialized by the caller.
func Run(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, d *mapping.Descriptor, hospitalID, filePath string) (*model.IngestSummary, error) {
	start := time.Now()

	log.Info().
		Str("hospital", hospitalID).
		Str("file", filePath).
		Str("format", d.FormatType).
		Str("payer_style", d.PriceExtraction.PayerStyle).
		Msg("starting ingest")

	source, err := openSource(d, filePath)
	if err != nil {
		return nil, &PipelineError{Phase: "open", Err: err}
	}
	defer source.Close()

	deleted, err := db.DeleteHospital(ctx, pool, hospitalID)
	if err != nil {
		return nil, &PipelineError{Phase: "delete", Err: err}
	}
	if deleted > 0 {
		log.Info().Int64("items_deleted", deleted).Msg("cleared previous ingest")
	}

	summary := &model.IngestSummary{
		HospitalID:   hospitalID,
		FilePath:     filePath,
		ItemsDeleted: deleted,
	}

	w := newWriter(pool, hospitalID)

	for {
		row, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Structural file error: fatal for this source, previously
			// ingested hospitals are untouched and the next full run
			// self-heals whatever was partially written.
			return nil, &PipelineError{Phase: "read", Err: err}
		}
		summary.RowsRead++

		mapped := extract.Assemble(row, d)
		summary.Diagnostics.Add(&mapped.Diag)

		if mapped.Skip() {
			summary.RowsSkipped++
			continue
		}

		if err := w.add(ctx, mapped); err != nil {
			return nil, &PipelineError{Phase: "write", Err: err}
		}
	}

	if err := w.flush(ctx); err != nil {
		return nil, &PipelineError{Phase: "write", Err: err}
	}

	summary.ItemsCreated = w.itemsCreated
	summary.OffersCreated = w.offersCreated
	summary.Duration = time.Since(start)

	if deleted > 0 && summary.ItemsCreated == 0 {
		// Zero items where there used to be some is a signal, not success.
		log.Warn().
			Int64("items_deleted", deleted).
			Msg("ingest produced no items for a hospital that previously had some")
	}
	for col, n := range summary.Diagnostics.MissingColumns {
		log.Warn().Str("column", col).Int64("rows", n).
			Msg("descriptor references a column absent from the file")
	}
	if summary.Diagnostics.HeaderStyleColumnsSeen > 0 {
		log.Warn().
			Int64("cells", summary.Diagnostics.HeaderStyleColumnsSeen).
			Msg("header-style price columns present under column payer style; check the descriptor")
	}

	log.Info().
		Int64("rows_read", summary.RowsRead).
		Int64("rows_skipped", summary.RowsSkipped).
		Int64("items_created", summary.ItemsCreated).
		Int64("offers_created", summary.OffersCreated).
		Dur("duration", summary.Duration).
		Msg("ingest complete")

	return summary, nil
}

// openSource picks the row source implied by the descriptor's file shape.
func openSource(d *mapping.Descriptor, filePath string) (rowsource.Source, error) {
	if d.FormatType == mapping.FormatJSON {
		return rowsource.OpenJSON(filePath)
	}
	return rowsource.OpenCSV(filePath, d.HeaderRow, d.Encoding)
}

// writer accumulates items and offers, deduplicating both, and flushes them
// in bounded batches. Items are always flushed before the offers that
// reference them.
type writer struct {
	pool       *pgxpool.Pool
	hospitalID string

	itemIDs    map[model.ItemKey]uuid.UUID
	offersSeen map[model.OfferKey]struct{}

	pendingItems  []*model.BillableItem
	pendingOffers []*model.PricedOffer

	itemsCreated  int64
	offersCreated int64
}

func newWriter(pool *pgxpool.Pool, hospitalID string) *writer {
	return &writer{
		pool:       pool,
		hospitalID: hospitalID,
		itemIDs:    make(map[model.ItemKey]uuid.UUID),
		offersSeen: make(map[model.OfferKey]struct{}),
	}
}

// add registers one mapped row: repeated rows referring to the same item
// identity reuse one BillableItem and only append new offers.
func (w *writer) add(ctx context.Context, m *model.MappedRow) error {
	key := model.ItemKey{
		Code:        m.Code,
		Description: m.Description,
		Setting:     m.Setting,
		HospitalID:  w.hospitalID,
	}

	itemID, ok := w.itemIDs[key]
	if !ok {
		itemID = uuid.New()
		w.itemIDs[key] = itemID
		w.pendingItems = append(w.pendingItems, &model.BillableItem{
			ID:          itemID,
			Code:        m.Code,
			CodeType:    m.CodeType,
			Description: m.Description,
			HospitalID:  w.hospitalID,
			Setting:     m.Setting,
		})
		w.itemsCreated++
	}

	for i := range m.Offers {
		o := &m.Offers[i]
		if !o.HasContent() {
			continue
		}
		offer := &model.PricedOffer{
			ID:         uuid.New(),
			ItemID:     itemID,
			Payer:      o.Payer,
			Plan:       o.Plan,
			Amount:     o.Amount,
			Percentage: o.Percentage,
			Notes:      o.Notes,
		}
		if _, dup := w.offersSeen[offer.Key()]; dup {
			continue
		}
		w.offersSeen[offer.Key()] = struct{}{}
		w.pendingOffers = append(w.pendingOffers, offer)
		w.offersCreated++
	}

	if len(w.pendingItems)+len(w.pendingOffers) >= flushBatchSize {
		return w.flush(ctx)
	}
	return nil
}

// flush COPY-loads pending items then pending offers.
func (w *writer) flush(ctx context.Context) error {
	if _, err := db.CopyItems(ctx, w.pool, w.pendingItems); err != nil {
		return err
	}
	if _, err := db.CopyOffers(ctx, w.pool, w.pendingOffers); err != nil {
		return err
	}
	w.pendingItems = w.pendingItems[:0]
	w.pendingOffers = w.pendingOffers[:0]
	return nil
}
