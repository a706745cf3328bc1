// Package extract implements the normalization core: turning one raw source
// row plus a mapping descriptor into a canonical code, setting, description,
// and a list of priced offers. Everything here is purely functional per row;
// no IO, no shared state.
package extract

import (
	"math"
	"strconv"
	"strings"

	"github.com/gyeh/chargeload/internal/mapping"
)

// ParsePrice turns a raw cell into a typed price value, a free-text note, or
// nothing. Formula text is preserved as a note since it is often the only
// clue to non-fixed pricing; values at or above the placeholder threshold
// are "not applicable" sentinels, not real prices. No failure escapes as an
// error: any unparseable non-empty input degrades to the note path.
func ParsePrice(raw string, rules mapping.SkipRules) (*float64, *string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}

	lower := strings.ToLower(s)
	for _, pat := range rules.FormulaPatterns {
		if pat != "" && strings.Contains(lower, strings.ToLower(pat)) {
			return nil, &s
		}
	}

	clean := strings.NewReplacer("$", "", ",", "").Replace(s)
	v, err := strconv.ParseFloat(strings.TrimSpace(clean), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		if err == nil {
			// "NaN"/"Inf" literals parse but are placeholders, not prices.
			return nil, nil
		}
		return nil, &s
	}

	threshold := rules.PlaceholderThreshold
	if threshold == 0 {
		threshold = mapping.DefaultPlaceholderThreshold
	}
	if v >= threshold {
		return nil, nil
	}
	return &v, nil
}

// parsePercent extracts a numeric percentage from a cell like "50", "50%",
// or "50.0 %". Returns nil when the cell is not numeric.
func parsePercent(raw string) *float64 {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
