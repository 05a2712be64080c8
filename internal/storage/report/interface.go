// Package report keeps recent scan reports for the API.
package report

import (
	"context"
	"time"

	"github.com/newthinker/momentum/internal/core"
)

// Store defines the interface for scan report persistence.
type Store interface {
	// Save persists a report. Reports without an ID are rejected.
	Save(ctx context.Context, r core.ScanReport) error

	// Latest returns the most recently saved report.
	Latest(ctx context.Context) (*core.ScanReport, error)

	// GetByID retrieves a report by its ID.
	GetByID(ctx context.Context, id string) (*core.ScanReport, error)

	// List retrieves reports matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]core.ScanReport, error)
}

// ListFilter defines criteria for listing reports.
type ListFilter struct {
	Source string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}
