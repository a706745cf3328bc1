package extract

import (
	"strings"

	"github.com/gyeh/chargeload/internal/mapping"
	"github.com/gyeh/chargeload/internal/model"
	"github.com/gyeh/chargeload/internal/rowsource"
)

// DefaultDescription stands in for rows whose description column is absent
// or blank.
const DefaultDescription = "No Description"

// Assemble composes the resolvers into one normalized row: code, code type,
// description, setting, offers, plus diagnostics recording which descriptor
// columns were missing from the source. Row-level problems are absorbed
// here, never raised.
func Assemble(row rowsource.Row, d *mapping.Descriptor) *model.MappedRow {
	m := &model.MappedRow{}

	m.Code, m.CodeType = ResolveCode(row, d)
	m.Setting = ResolveSetting(row, d)

	m.Description = cell(row, d.DescriptionColumn)
	if m.Description == "" {
		m.Description = DefaultDescription
	}

	m.Offers = ExtractOffers(row, d, &m.Diag)
	m.Diag.MissingColumns = missingColumns(row, d)

	return m
}

// missingColumns reports descriptor-referenced columns absent from the row,
// so a human can fix a descriptor/schema mismatch. Only columns the
// configured extraction style actually consults are checked.
func missingColumns(row rowsource.Row, d *mapping.Descriptor) []string {
	var missing []string
	seen := make(map[string]bool)
	check := func(col string) {
		if col == "" || seen[col] {
			return
		}
		seen[col] = true
		if !present(row, col) {
			missing = append(missing, col)
		}
	}

	for _, col := range d.CodeExtraction.Columns {
		check(col)
	}
	for _, col := range d.CodeExtraction.TypeColumns {
		check(col)
	}
	check(d.DescriptionColumn)
	check(d.SettingExtraction.Primary)
	check(d.SettingExtraction.Fallback)

	pe := d.PriceExtraction
	switch {
	case d.FormatType == mapping.FormatJSON:
		check(detailKey)
	case pe.PayerStyle == mapping.PayerStyleColumn:
		check(pe.PayerColumn)
		check(pe.PlanColumn)
		check(pe.PriceColumn)
		check(pe.GrossColumn)
		check(pe.CashColumn)
	default:
		check(pe.GrossColumn)
		check(pe.CashColumn)
	}
	return missing
}

// present reports whether the row carries the column at all, either as a
// scalar cell or as a nested detail value.
func present(row rowsource.Row, col string) bool {
	if _, ok := row.Get(col); ok {
		return true
	}
	if nested, ok := row.(rowsource.NestedRow); ok {
		if _, ok := nested.Detail(col); ok {
			return true
		}
		// Columns such as the care setting may live inside the nested
		// price-detail objects rather than at the record's top level.
		if obj := firstDetailObject(nested); obj != nil {
			if _, ok := obj[col]; ok {
				return true
			}
		}
	}
	// A short record hides cells that the file's header does declare; that
	// is not a descriptor mismatch.
	target := strings.TrimSpace(col)
	for _, c := range row.Columns() {
		if c == target {
			return true
		}
	}
	return false
}
