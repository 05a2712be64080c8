package core

import "time"

// DroppedRow records a raw row the normalizer rejected.
type DroppedRow struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// ScanReport is the outcome of one scan cycle.
type ScanReport struct {
	ID          string            `json:"id"`
	Source      string            `json:"source"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Assessments []TradeAssessment `json:"assessments"`
	Dropped     []DroppedRow      `json:"dropped,omitempty"`
	// Filtered counts records removed by the price and volume screens.
	Filtered   int    `json:"filtered"`
	Alerted    int    `json:"alerted"`
	ArchiveKey string `json:"archive_key,omitempty"`
	Commentary string `json:"commentary,omitempty"`
}

// Top returns the first assessment, which after sorting is the largest
// mover. ok is false for an empty report.
func (r ScanReport) Top() (TradeAssessment, bool) {
	if len(r.Assessments) == 0 {
		return TradeAssessment{}, false
	}
	return r.Assessments[0], true
}

// Duration is the wall time the scan took
func (r ScanReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
