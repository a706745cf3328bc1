package model

// ExportRow is one item/offer pair flattened for the Parquet snapshot
// written by the export command.
type ExportRow struct {
	HospitalID  string   `parquet:"hospital_id"`
	Code        string   `parquet:"code"`
	CodeType    string   `parquet:"code_type"`
	Description string   `parquet:"description"`
	Setting     string   `parquet:"setting"`
	Payer       string   `parquet:"payer"`
	Plan        *string  `parquet:"plan,optional"`
	Amount      *float64 `parquet:"amount,optional"`
	Percentage  *float64 `parquet:"percentage,optional"`
	Notes       *string  `parquet:"notes,optional"`
}
