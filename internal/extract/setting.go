package extract

import (
	"strings"

	"github.com/gyeh/chargeload/internal/mapping"
	"github.com/gyeh/chargeload/internal/rowsource"
)

// detailKey is the CMS schema name for the nested price-detail list carried
// by JSON-shaped records.
const detailKey = "standard_charges"

// ResolveSetting resolves the care setting from the primary column, then the
// fallback column, then (for JSON-shaped rows) the first nested price-detail
// object. This never fails: a missing setting resolves to the descriptor's
// default and is a data-quality signal, not an error.
func ResolveSetting(row rowsource.Row, d *mapping.Descriptor) string {
	se := d.SettingExtraction

	if v := cell(row, se.Primary); v != "" {
		return v
	}
	if v := cell(row, se.Fallback); v != "" {
		return v
	}

	if nested, ok := row.(rowsource.NestedRow); ok {
		if obj := firstDetailObject(nested); obj != nil {
			if v := strings.TrimSpace(firstScalar(obj, se.Primary)); v != "" && se.Primary != "" {
				return v
			}
			if v := strings.TrimSpace(firstScalar(obj, se.Fallback)); v != "" && se.Fallback != "" {
				return v
			}
		}
	}

	return se.Default
}

// cell returns the trimmed value of col, or "" when the column is absent,
// blank, or not configured.
func cell(row rowsource.Row, col string) string {
	if col == "" {
		return ""
	}
	v, ok := row.Get(col)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// firstDetailObject returns the first nested price-detail object of a
// JSON-shaped row, whether the detail value is a list or a single object.
func firstDetailObject(row rowsource.NestedRow) map[string]any {
	v, ok := row.Detail(detailKey)
	if !ok {
		return nil
	}
	if list := asList(v); len(list) > 0 {
		return asMap(list[0])
	}
	return asMap(v)
}
