package model

import "time"

// IngestSummary captures metrics from a single hospital ingest run.
type IngestSummary struct {
	HospitalID    string
	FilePath      string
	RowsRead      int64
	RowsSkipped   int64
	ItemsCreated  int64
	OffersCreated int64
	ItemsDeleted  int64
	Diagnostics   DiagTotals
	Duration      time.Duration
}

// HospitalResult is one hospital's outcome within a batch run.
type HospitalResult struct {
	HospitalID string
	Summary    *IngestSummary
	Err        error
}

// BatchSummary aggregates a multi-hospital batch run. Failed hospitals are
// reported individually so one bad file never hides behind the totals.
type BatchSummary struct {
	Succeeded   int
	Failed      int
	TotalItems  int64
	TotalOffers int64
	Results     []HospitalResult
	Duration    time.Duration
}
