package ingest

import (
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/chargeload/internal/extract"
	"github.com/gyeh/chargeload/internal/mapping"
	"github.com/gyeh/chargeload/internal/model"
)

// PlanReport is the result of a dry run: everything an ingest would produce,
// without touching the store.
type PlanReport struct {
	RowsRead    int64
	RowsSkipped int64
	Items       int64
	Offers      int64
	// Schemes counts distinct items per resolved code scheme.
	Schemes     map[string]int64
	Diagnostics model.DiagTotals
}

// Plan streams and assembles the file exactly as Run would, counting
// would-be items and offers instead of writing them. Useful when authoring
// or reviewing a descriptor before committing to an ingest.
func Plan(log zerolog.Logger, d *mapping.Descriptor, filePath string) (*PlanReport, error) {
	source, err := openSource(d, filePath)
	if err != nil {
		return nil, &PipelineError{Phase: "open", Err: err}
	}
	defer source.Close()

	report := &PlanReport{Schemes: make(map[string]int64)}

	// Identity set mirrors the engine's item cache; hospital id is constant
	// within one file so it is left out of the key. The uuids are throwaway,
	// they only anchor the offer dedup tuple.
	type planItemKey struct {
		code, description, setting string
	}
	items := make(map[planItemKey]uuid.UUID)
	offers := make(map[model.OfferKey]struct{})

	for {
		row, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &PipelineError{Phase: "read", Err: err}
		}
		report.RowsRead++

		mapped := extract.Assemble(row, d)
		report.Diagnostics.Add(&mapped.Diag)

		if mapped.Skip() {
			report.RowsSkipped++
			continue
		}

		key := planItemKey{mapped.Code, mapped.Description, mapped.Setting}
		itemID, seen := items[key]
		if !seen {
			itemID = uuid.New()
			items[key] = itemID
			report.Items++
			report.Schemes[mapped.CodeType]++
		}

		for i := range mapped.Offers {
			o := &mapped.Offers[i]
			if !o.HasContent() {
				continue
			}
			offer := model.PricedOffer{
				ItemID: itemID,
				Payer:  o.Payer,
				Plan:   o.Plan,
				Amount: o.Amount,
				Notes:  o.Notes,
			}
			if _, dup := offers[offer.Key()]; dup {
				continue
			}
			offers[offer.Key()] = struct{}{}
			report.Offers++
		}
	}

	log.Info().
		Int64("rows_read", report.RowsRead).
		Int64("rows_skipped", report.RowsSkipped).
		Int64("items", report.Items).
		Int64("offers", report.Offers).
		Msg("plan complete")

	return report, nil
}
