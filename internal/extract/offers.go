package extract

import (
	"fmt"
	"strings"

	"github.com/gyeh/chargeload/internal/mapping"
	"github.com/gyeh/chargeload/internal/model"
	"github.com/gyeh/chargeload/internal/rowsource"
)

// Header-name fragments that mark a payer-specific price column in
// header-style (wide) files.
var headerPricePatterns = []string{"negotiated_dollar", "estimated_amount"}

// reservedSuffix tokens are trailing header segments, never plan names.
var reservedSuffix = map[string]bool{
	"negotiated_dollar": true,
	"estimated_amount":  true,
}

// ExtractOffers produces the full list of priced offers for one row. The
// strategy is selected by the descriptor: nested-JSON extraction for
// json-shaped files, otherwise column style or header style per the
// configured payer style. The configuration is never overridden mid-file;
// header-style columns seen under column style are only counted in diag.
func ExtractOffers(row rowsource.Row, d *mapping.Descriptor, diag *model.RowDiagnostics) []model.Offer {
	if d.FormatType == mapping.FormatJSON {
		return jsonOffers(row, d, diag)
	}
	if d.PriceExtraction.PayerStyle == mapping.PayerStyleHeader {
		return headerOffers(row, d, diag)
	}
	return columnOffers(row, d, diag)
}

// columnOffers handles tall files where each row carries one payer's price
// in a fixed column. A missing dollar amount falls back to a percentage
// note, then to configured sibling columns; gross and discounted-cash
// reference prices are attempted unconditionally since they exist
// independently of the payer-specific price.
func columnOffers(row rowsource.Row, d *mapping.Descriptor, diag *model.RowDiagnostics) []model.Offer {
	pe := d.PriceExtraction
	var offers []model.Offer

	payer := cell(row, pe.PayerColumn)
	if payer != "" {
		plan := optCell(row, pe.PlanColumn)

		amount, note := parseCell(row, pe.PriceColumn, d.SkipRules, diag)

		var pct *float64
		if amount == nil && note == nil {
			if raw := cell(row, pe.PercentageColumn); raw != "" {
				pct = parsePercent(raw)
				note = percentageNote(raw, cell(row, pe.MethodologyColumn))
			}
		}
		if amount == nil && note == nil {
			note = siblingNote(row, pe)
		}

		if amount != nil || pct != nil || note != nil {
			offers = append(offers, model.Offer{
				Payer:      payer,
				Plan:       plan,
				Amount:     amount,
				Percentage: pct,
				Notes:      note,
			})
		}
	}

	offers = appendReferenceOffers(offers, row, d, diag)

	// Surface probable descriptor-authoring bugs: header-style price columns
	// present while configured for column style.
	for _, col := range row.Columns() {
		if col == pe.PriceColumn {
			continue
		}
		for _, pat := range headerPricePatterns {
			if strings.Contains(col, pat) {
				diag.HeaderStyleColumnsSeen++
				break
			}
		}
	}

	return offers
}

// headerOffers handles wide files where each payer has its own price column
// named with a delimited pattern such as
// "standard_charge|<Payer>|<Plan>|negotiated_dollar".
func headerOffers(row rowsource.Row, d *mapping.Descriptor, diag *model.RowDiagnostics) []model.Offer {
	var offers []model.Offer

	for _, col := range row.Columns() {
		if !matchesHeaderPrice(col) {
			continue
		}
		amount, note := parseCell(row, col, d.SkipRules, diag)
		if amount == nil && note == nil {
			continue
		}
		payer, plan := payerFromHeader(col)
		offers = append(offers, model.Offer{
			Payer:  payer,
			Plan:   plan,
			Amount: amount,
			Notes:  note,
		})
	}

	return appendReferenceOffers(offers, row, d, diag)
}

func matchesHeaderPrice(col string) bool {
	for _, pat := range headerPricePatterns {
		if strings.Contains(col, pat) {
			return true
		}
	}
	return false
}

// payerFromHeader derives payer and plan from a delimited column name. The
// second segment is the payer; the third is the plan unless it is itself a
// reserved suffix token.
func payerFromHeader(col string) (string, *string) {
	parts := strings.Split(col, "|")
	payer := "Unknown"
	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		payer = strings.TrimSpace(parts[1])
	}
	var plan *string
	if len(parts) > 2 {
		p := strings.TrimSpace(parts[2])
		if p != "" && !reservedSuffix[strings.ToLower(p)] {
			plan = &p
		}
	}
	return payer, plan
}

// jsonOffers handles records carrying a nested price-detail list: reference
// prices per detail object, then one offer per payer-information entry,
// preferring a dollar amount and falling back to a percentage note.
func jsonOffers(row rowsource.Row, d *mapping.Descriptor, diag *model.RowDiagnostics) []model.Offer {
	nested, ok := row.(rowsource.NestedRow)
	if !ok {
		return nil
	}
	detail, ok := nested.Detail(detailKey)
	if !ok {
		return nil
	}

	details := asList(detail)
	if details == nil {
		if obj := asMap(detail); obj != nil {
			details = []any{obj}
		}
	}

	var offers []model.Offer
	for _, dv := range details {
		obj := asMap(dv)
		if obj == nil {
			continue
		}

		if raw := firstScalar(obj, "gross_charge"); raw != "" {
			if amount, note := parsePriceDiag(raw, d.SkipRules, diag); amount != nil || note != nil {
				offers = append(offers, model.Offer{Payer: model.PayerGross, Amount: amount, Notes: note})
			}
		}
		if raw := firstScalar(obj, "discounted_cash"); raw != "" {
			if amount, note := parsePriceDiag(raw, d.SkipRules, diag); amount != nil || note != nil {
				offers = append(offers, model.Offer{Payer: model.PayerDiscountedCash, Amount: amount, Notes: note})
			}
		}

		for _, pv := range asList(obj["payers_information"]) {
			payerObj := asMap(pv)
			if payerObj == nil {
				continue
			}
			if offer, ok := payerOffer(payerObj, d.SkipRules, diag); ok {
				offers = append(offers, offer)
			}
		}
	}
	return offers
}

// payerOffer extracts one offer from a payers_information entry. A
// payer-supplied free-text note is appended to the synthesized note, never
// replacing it.
func payerOffer(obj map[string]any, rules mapping.SkipRules, diag *model.RowDiagnostics) (model.Offer, bool) {
	payer := firstScalar(obj, "payer_name", "payer")
	if payer == "" {
		return model.Offer{}, false
	}

	offer := model.Offer{Payer: payer}
	if plan := firstScalar(obj, "plan_name", "plan"); plan != "" {
		offer.Plan = &plan
	}

	var note *string
	if raw := firstScalar(obj, "estimated_amount", "standard_charge_dollar", "negotiated_dollar"); raw != "" {
		offer.Amount, note = parsePriceDiag(raw, rules, diag)
	}
	if offer.Amount == nil && note == nil {
		if raw := firstScalar(obj, "negotiated_percentage", "standard_charge_percentage", "percentage"); raw != "" {
			offer.Percentage = parsePercent(raw)
			note = percentageNote(raw, firstScalar(obj, "methodology", "methodology_type"))
		}
	}
	if extra := firstScalar(obj, "additional_payer_notes"); extra != "" {
		note = joinNotes(note, extra)
	}
	offer.Notes = note

	if !offer.HasContent() {
		return model.Offer{}, false
	}
	return offer, true
}

// appendReferenceOffers attempts the configured gross-charge and
// discounted-cash columns, emitting GROSS/DISCOUNTED_CASH offers when
// present.
func appendReferenceOffers(offers []model.Offer, row rowsource.Row, d *mapping.Descriptor, diag *model.RowDiagnostics) []model.Offer {
	pe := d.PriceExtraction

	if amount, note := parseCell(row, pe.GrossColumn, d.SkipRules, diag); amount != nil || note != nil {
		offers = append(offers, model.Offer{Payer: model.PayerGross, Amount: amount, Notes: note})
	}
	if amount, note := parseCell(row, pe.CashColumn, d.SkipRules, diag); amount != nil || note != nil {
		offers = append(offers, model.Offer{Payer: model.PayerDiscountedCash, Amount: amount, Notes: note})
	}
	return offers
}

// parseCell runs ParsePrice over a configured column's cell.
func parseCell(row rowsource.Row, col string, rules mapping.SkipRules, diag *model.RowDiagnostics) (*float64, *string) {
	if col == "" {
		return nil, nil
	}
	raw, ok := row.Get(col)
	if !ok {
		return nil, nil
	}
	return parsePriceDiag(raw, rules, diag)
}

func parsePriceDiag(raw string, rules mapping.SkipRules, diag *model.RowDiagnostics) (*float64, *string) {
	amount, note := ParsePrice(raw, rules)
	if note != nil {
		diag.NotePrices++
	}
	return amount, note
}

// percentageNote synthesizes the note form for percentage-of-charge pricing.
// No derived dollar figure is guessed: the basis (percent of what charge) is
// not reliably available at extraction time.
func percentageNote(rawPct, methodology string) *string {
	pct := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rawPct), "%"))
	var s string
	if methodology != "" {
		s = fmt.Sprintf("PERCENTAGE: %s%% (%s)", pct, methodology)
	} else {
		s = fmt.Sprintf("PERCENTAGE: %s%%", pct)
	}
	return &s
}

// siblingNote tries configured sibling columns (adjacent methodology or
// algorithm columns) as a last-resort note source. Sibling names are
// resolved against the price column's pipe prefix.
func siblingNote(row rowsource.Row, pe mapping.PriceExtraction) *string {
	for _, suffix := range pe.SiblingColumns {
		col := suffix
		if idx := strings.LastIndex(pe.PriceColumn, "|"); idx >= 0 {
			col = pe.PriceColumn[:idx] + "|" + suffix
		}
		if v := cell(row, col); v != "" {
			s := fmt.Sprintf("%s: %s", suffix, v)
			return &s
		}
	}
	return nil
}

// optCell returns a pointer to the trimmed cell value, or nil when blank.
func optCell(row rowsource.Row, col string) *string {
	if v := cell(row, col); v != "" {
		return &v
	}
	return nil
}

func joinNotes(existing *string, extra string) *string {
	if existing == nil {
		return &extra
	}
	s := *existing + "; " + extra
	return &s
}
