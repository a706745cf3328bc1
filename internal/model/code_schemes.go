package model

// Billing code schemes recognized by the resolver. SchemeUnknown marks a
// code whose scheme could not be determined from the source file.
const (
	SchemeCPT     = "CPT"
	SchemeHCPCS   = "HCPCS"
	SchemeMSDRG   = "MS-DRG"
	SchemeAPRDRG  = "APR-DRG"
	SchemeNDC     = "NDC"
	SchemeCDM     = "CDM"
	SchemeLocal   = "Local"
	SchemeUnknown = "UNKNOWN"
)

// CodeUnknown is the code returned when no candidate column yields a value.
// Rows carrying it are skipped by the ingestion engine.
const CodeUnknown = "UNKNOWN"

// DefaultSchemePriority is the resolver priority order used when a mapping
// descriptor does not supply one. Lower index wins.
var DefaultSchemePriority = []string{
	SchemeCPT,
	SchemeHCPCS,
	SchemeMSDRG,
	SchemeAPRDRG,
	SchemeNDC,
	SchemeCDM,
	SchemeLocal,
}

// FixedWidthScheme reports whether the scheme has a fixed-width public
// definition (exactly 5 characters). A length mismatch under one of these
// schemes indicates a mislabeled internal code.
func FixedWidthScheme(scheme string) bool {
	return scheme == SchemeCPT || scheme == SchemeHCPCS
}
