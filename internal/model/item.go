package model

import "github.com/google/uuid"

// Payer sentinels for reference prices that exist independently of any
// negotiated payer price on the same row.
const (
	PayerGross          = "GROSS"
	PayerDiscountedCash = "DISCOUNTED_CASH"
)

// BillableItem is one priced thing at one hospital. Identity for
// deduplication is (code, description, setting, hospital_id), not the
// surrogate id: the same code can appear with different descriptions or
// settings within one file and each combination is a distinct billable
// concept.
type BillableItem struct {
	ID          uuid.UUID
	Code        string
	CodeType    string
	Description string
	HospitalID  string
	Setting     string
}

// ItemKey is the identity tuple used by the per-run item cache.
type ItemKey struct {
	Code        string
	Description string
	Setting     string
	HospitalID  string
}

// Key returns the item's identity tuple.
func (it *BillableItem) Key() ItemKey {
	return ItemKey{
		Code:        it.Code,
		Description: it.Description,
		Setting:     it.Setting,
		HospitalID:  it.HospitalID,
	}
}

// ItemColumns returns the ordered column names for COPY into items.
func ItemColumns() []string {
	return []string{"id", "code", "code_type", "description", "hospital_id", "setting"}
}

// CopyValues returns the item's values in COPY column order.
func (it *BillableItem) CopyValues() []any {
	return []any{it.ID, it.Code, it.CodeType, it.Description, it.HospitalID, it.Setting}
}

// PricedOffer is one negotiated or reference price for a BillableItem.
// Amount is absent when pricing is percentage- or formula-based; Notes may
// itself encode an unparsed price expression. An offer carries at least one
// of amount, percentage, or notes.
type PricedOffer struct {
	ID         uuid.UUID
	ItemID     uuid.UUID
	Payer      string
	Plan       *string
	Amount     *float64
	Percentage *float64
	Notes      *string
}

// HasContent reports whether the offer carries at least one of amount,
// percentage, or notes. Offers without any are never created.
func (o *PricedOffer) HasContent() bool {
	return o.Amount != nil || o.Percentage != nil || o.Notes != nil
}

// OfferKey is the dedup tuple for offers within one ingestion run.
type OfferKey struct {
	ItemID uuid.UUID
	Payer  string
	Plan   string
	Amount float64
	HasAmt bool
	Notes  string
}

// Key returns the offer's dedup tuple.
func (o *PricedOffer) Key() OfferKey {
	k := OfferKey{ItemID: o.ItemID, Payer: o.Payer}
	if o.Plan != nil {
		k.Plan = *o.Plan
	}
	if o.Amount != nil {
		k.Amount = *o.Amount
		k.HasAmt = true
	}
	if o.Notes != nil {
		k.Notes = *o.Notes
	}
	return k
}

// OfferColumns returns the ordered column names for COPY into prices.
func OfferColumns() []string {
	return []string{"id", "item_id", "payer", "plan", "amount", "percentage", "notes"}
}

// CopyValues returns the offer's values in COPY column order.
func (o *PricedOffer) CopyValues() []any {
	return []any{o.ID, o.ItemID, o.Payer, o.Plan, o.Amount, o.Percentage, o.Notes}
}

// CodeDefinition is one row of the code-to-human-description lookup table,
// keyed by code only (independent of any hospital).
type CodeDefinition struct {
	Code             string
	ShortDescription *string
	LongDescription  *string
}
