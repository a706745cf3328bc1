package extract

import (
	"strings"
	"unicode"

	"github.com/gyeh/chargeload/internal/mapping"
	"github.com/gyeh/chargeload/internal/model"
	"github.com/gyeh/chargeload/internal/rowsource"
)

const unknownPriority = 999

// ResolveCode picks the single best canonical code for a row by scanning the
// descriptor's candidate columns in order and scoring each candidate against
// the configured scheme priority. Ties keep the first-seen candidate, so
// column order is itself a secondary priority. Returns
// ("UNKNOWN","UNKNOWN") when no column yields a code; such rows are excluded
// from ingestion by the caller.
func ResolveCode(row rowsource.Row, d *mapping.Descriptor) (string, string) {
	ce := d.CodeExtraction

	prio := make(map[string]int, len(ce.Priority))
	for i, scheme := range ce.Priority {
		prio[scheme] = i
	}

	bestCode := model.CodeUnknown
	bestScheme := model.SchemeUnknown
	bestPrio := unknownPriority + 1

	for i, col := range ce.Columns {
		code, scheme := candidate(row, col)
		if code == "" {
			continue
		}

		if scheme == "" {
			if i < len(ce.TypeColumns) && ce.TypeColumns[i] != "" {
				if v, ok := row.Get(ce.TypeColumns[i]); ok {
					scheme = strings.TrimSpace(v)
				}
			}
		}
		if scheme == "" {
			scheme = model.SchemeUnknown
		}

		// CPT and HCPCS are the fixed-width public schemes; a length
		// mismatch means a mislabeled internal code.
		if model.FixedWidthScheme(scheme) && len(code) != 5 {
			scheme = model.SchemeLocal
		}

		p, ok := prio[scheme]
		if !ok {
			p = unknownPriority
		}
		if p < bestPrio {
			bestCode = code
			bestScheme = scheme
			bestPrio = p
		}
	}

	if bestCode == model.CodeUnknown {
		return model.CodeUnknown, model.SchemeUnknown
	}

	// Format is a stronger signal than an unreliable type column: correct
	// the scheme of 5-character codes from shape alone.
	if d.AutoNormalize() && len(bestCode) == 5 {
		if allDigits(bestCode) {
			bestScheme = model.SchemeCPT
		} else if unicode.IsLetter(rune(bestCode[0])) {
			bestScheme = model.SchemeHCPCS
		}
	}

	return bestCode, bestScheme
}

// candidate reads one code column, reaching into nested JSON objects of the
// form {"code": ..., "type": ...} (or lists of them) when the cell is not a
// scalar. The embedded scheme, when present, wins over the parallel type
// column.
func candidate(row rowsource.Row, col string) (code, scheme string) {
	if v, ok := row.Get(col); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), ""
	}

	nested, ok := row.(rowsource.NestedRow)
	if !ok {
		return "", ""
	}
	detail, ok := nested.Detail(col)
	if !ok {
		return "", ""
	}
	if list := asList(detail); len(list) > 0 {
		detail = list[0]
	}
	obj := asMap(detail)
	if obj == nil {
		return "", ""
	}
	code = strings.TrimSpace(firstScalar(obj, "code", "code_value", "procedure_code"))
	scheme = strings.TrimSpace(firstScalar(obj, "code_type", "type", "codeType"))
	return code, scheme
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
