// Package mapping loads the per-hospital mapping descriptor: the declarative
// configuration that parameterizes every resolver in the extraction engine.
// The descriptor is produced externally (profiler + AI pipeline, optionally
// hand-edited) and is read-only input to every ingestion run.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gyeh/chargeload/internal/model"
)

// File shapes.
const (
	FormatTall = "tall"
	FormatWide = "wide"
	FormatJSON = "json"
)

// Payer styles: whether payer identity comes from a row's column value
// ("column") or from the price column's own header name ("header").
const (
	PayerStyleColumn = "column"
	PayerStyleHeader = "header"
)

// Supported text encodings.
const (
	EncodingUTF8  = "utf-8"
	EncodingLatin = "iso-8859-1"
)

// DefaultPlaceholderThreshold marks "not applicable" sentinel prices: parsed
// values at or above it are discarded rather than stored.
const DefaultPlaceholderThreshold = 99999999

// DefaultFormulaPatterns flag free-text pricing expressions that must be
// preserved as notes instead of parsed.
var DefaultFormulaPatterns = []string{
	"Formula", "algorithm", "see contract", "varies", "call for pricing",
}

// Descriptor is the externally supplied configuration driving extraction for
// one hospital's file. It fully determines resolver behavior; the engine
// carries no hospital-specific branches.
type Descriptor struct {
	FormatType        string            `json:"format_type"`
	HeaderRow         int               `json:"header_row"`
	Encoding          string            `json:"encoding"`
	CodeExtraction    CodeExtraction    `json:"code_extraction"`
	DescriptionColumn string            `json:"description_column"`
	SettingExtraction SettingExtraction `json:"setting_extraction"`
	PriceExtraction   PriceExtraction   `json:"price_extraction"`
	SkipRules         SkipRules         `json:"skip_rules"`
}

// CodeExtraction configures the code resolver: candidate columns in
// descending order of trust, an optional parallel type-column list, and a
// scheme priority order.
type CodeExtraction struct {
	Columns       []string `json:"columns"`
	TypeColumns   []string `json:"type_columns"`
	Priority      []string `json:"priority"`
	AutoNormalize *bool    `json:"auto_normalize"`
}

// SettingExtraction configures the care-setting resolver.
type SettingExtraction struct {
	Primary  string `json:"primary"`
	Fallback string `json:"fallback"`
	Default  string `json:"default"`
}

// PriceExtraction configures the price/payer extractor. Column-style fields
// are ignored under header style and vice versa.
type PriceExtraction struct {
	PayerStyle        string   `json:"payer_style"`
	PayerColumn       string   `json:"payer_column"`
	PlanColumn        string   `json:"plan_column"`
	PriceColumn       string   `json:"price_column"`
	PercentageColumn  string   `json:"percentage_column"`
	MethodologyColumn string   `json:"methodology_column"`
	GrossColumn       string   `json:"gross_column"`
	CashColumn        string   `json:"cash_column"`
	SiblingColumns    []string `json:"sibling_columns"`
}

// SkipRules filter sentinel placeholder values and formula text.
type SkipRules struct {
	PlaceholderThreshold float64  `json:"placeholder_threshold"`
	FormulaPatterns      []string `json:"formula_patterns"`
}

// Load reads and validates a descriptor JSON file, applying defaults.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping descriptor: %w", err)
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse mapping descriptor: %w", err)
	}
	d.ApplyDefaults()
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("mapping descriptor %s: %w", path, err)
	}
	return &d, nil
}

// ApplyDefaults fills unset fields with the defaults the original source
// files imply: CMS-style column names and the canonical scheme priority.
func (d *Descriptor) ApplyDefaults() {
	if d.FormatType == "" {
		d.FormatType = FormatTall
	}
	if d.Encoding == "" {
		d.Encoding = EncodingUTF8
	}
	if len(d.CodeExtraction.Priority) == 0 {
		d.CodeExtraction.Priority = append([]string(nil), model.DefaultSchemePriority...)
	}
	if d.CodeExtraction.AutoNormalize == nil {
		t := true
		d.CodeExtraction.AutoNormalize = &t
	}
	if d.DescriptionColumn == "" {
		d.DescriptionColumn = "description"
	}
	if d.SettingExtraction.Primary == "" {
		d.SettingExtraction.Primary = "setting"
	}
	if d.SettingExtraction.Default == "" {
		d.SettingExtraction.Default = "UNKNOWN"
	}
	if d.PriceExtraction.PayerStyle == "" {
		d.PriceExtraction.PayerStyle = PayerStyleColumn
	}
	if d.PriceExtraction.GrossColumn == "" {
		d.PriceExtraction.GrossColumn = "standard_charge|gross"
	}
	if d.PriceExtraction.CashColumn == "" {
		d.PriceExtraction.CashColumn = "standard_charge|discounted_cash"
	}
	if d.SkipRules.PlaceholderThreshold == 0 {
		d.SkipRules.PlaceholderThreshold = DefaultPlaceholderThreshold
	}
	if len(d.SkipRules.FormulaPatterns) == 0 {
		d.SkipRules.FormulaPatterns = append([]string(nil), DefaultFormulaPatterns...)
	}
}

// Validate rejects descriptor values the engine cannot honor.
func (d *Descriptor) Validate() error {
	switch d.FormatType {
	case FormatTall, FormatWide, FormatJSON:
	default:
		return fmt.Errorf("unknown format_type %q", d.FormatType)
	}
	switch d.PriceExtraction.PayerStyle {
	case PayerStyleColumn, PayerStyleHeader:
	default:
		return fmt.Errorf("unknown payer_style %q", d.PriceExtraction.PayerStyle)
	}
	switch d.Encoding {
	case EncodingUTF8, EncodingLatin:
	default:
		return fmt.Errorf("unsupported encoding %q", d.Encoding)
	}
	if d.HeaderRow < 0 {
		return fmt.Errorf("header_row must be >= 0, got %d", d.HeaderRow)
	}
	if len(d.CodeExtraction.TypeColumns) > 0 &&
		len(d.CodeExtraction.TypeColumns) != len(d.CodeExtraction.Columns) {
		return fmt.Errorf("type_columns length %d does not match columns length %d",
			len(d.CodeExtraction.TypeColumns), len(d.CodeExtraction.Columns))
	}
	return nil
}

// AutoNormalize reports whether 5-character codes should have their scheme
// corrected from format alone.
func (d *Descriptor) AutoNormalize() bool {
	return d.CodeExtraction.AutoNormalize == nil || *d.CodeExtraction.AutoNormalize
}
