package model

// Offer is one extracted price before persistence: payer identity plus
// whichever of amount/percentage/notes the source row yielded.
type Offer struct {
	Payer      string
	Plan       *string
	Amount     *float64
	Percentage *float64
	Notes      *string
}

// HasContent reports whether the offer carries at least one of amount,
// percentage, or notes.
func (o *Offer) HasContent() bool {
	return o.Amount != nil || o.Percentage != nil || o.Notes != nil
}

// MappedRow is the normalized result of running every resolver over one
// source row.
type MappedRow struct {
	Code        string
	CodeType    string
	Description string
	Setting     string
	Offers      []Offer
	Diag        RowDiagnostics
}

// Skip reports whether the row should be excluded from ingestion. A row
// without an identifiable code cannot be meaningfully priced or looked up.
func (m *MappedRow) Skip() bool {
	return m.Code == "" || m.Code == CodeUnknown
}

// RowDiagnostics records row-level data-quality signals. These are absorbed
// and reported, never raised as errors.
type RowDiagnostics struct {
	// MissingColumns lists descriptor-referenced columns absent from the row.
	MissingColumns []string
	// NotePrices counts price cells that degraded to a free-text note.
	NotePrices int
	// HeaderStyleColumnsSeen counts header-style price columns observed on a
	// row extracted in column style. The descriptor is never overridden; the
	// count surfaces a likely descriptor-authoring bug.
	HeaderStyleColumnsSeen int
}

// DiagTotals accumulates RowDiagnostics over an ingestion run.
type DiagTotals struct {
	MissingColumns         map[string]int64
	NotePrices             int64
	HeaderStyleColumnsSeen int64
}

// Add folds one row's diagnostics into the totals.
func (t *DiagTotals) Add(d *RowDiagnostics) {
	if len(d.MissingColumns) > 0 {
		if t.MissingColumns == nil {
			t.MissingColumns = make(map[string]int64)
		}
		for _, c := range d.MissingColumns {
			t.MissingColumns[c]++
		}
	}
	t.NotePrices += int64(d.NotePrices)
	t.HeaderStyleColumnsSeen += int64(d.HeaderStyleColumnsSeen)
}
