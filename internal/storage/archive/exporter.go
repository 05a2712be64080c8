package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/newthinker/momentum/internal/core"
)

// CSVHeader is the column order of exported scans.
var CSVHeader = []string{
	"ticker", "name", "price", "percent_change", "volume",
	"signal", "confidence",
	"entry_low", "entry_high", "stop_loss", "target_1", "target_2",
	"risk_reward", "shares_affordable", "assessed_at",
}

// Exporter writes scan reports into a Storage as CSV.
type Exporter struct {
	store Storage
}

// NewExporter creates an exporter over store
func NewExporter(store Storage) *Exporter {
	return &Exporter{store: store}
}

// ScanKey returns the archive key of a scan: scans/YYYY/MM/DD/<id>.csv,
// dated by the scan's start in UTC.
func ScanKey(id string, startedAt time.Time) string {
	return fmt.Sprintf("scans/%s/%s.csv", startedAt.UTC().Format("2006/01/02"), id)
}

// Export writes r and returns the key it was stored under.
func (e *Exporter) Export(ctx context.Context, r core.ScanReport) (string, error) {
	if r.ID == "" {
		return "", core.WrapError(core.ErrInvalidInput, fmt.Errorf("scan report has no id"))
	}
	data, err := EncodeCSV(r.Assessments)
	if err != nil {
		return "", core.WrapError(core.ErrArchiveFailed, err)
	}
	key := ScanKey(r.ID, r.StartedAt)
	if err := e.store.Write(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// EncodeCSV renders assessments with CSVHeader as the first row. Decimals
// are written exactly; absent values are left empty.
func EncodeCSV(as []core.TradeAssessment) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return nil, err
	}
	for _, a := range as {
		if err := w.Write(csvRecord(a)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func csvRecord(a core.TradeAssessment) []string {
	var change, rr, at string
	if a.PercentChange.Valid {
		change = a.PercentChange.Decimal.String()
	}
	if a.RiskReward.Valid {
		rr = a.RiskReward.Decimal.StringFixed(2)
	}
	if !a.AssessedAt.IsZero() {
		at = a.AssessedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		a.Ticker,
		a.Name,
		a.Price.String(),
		change,
		strconv.FormatInt(a.Volume, 10),
		string(a.Signal),
		strconv.FormatFloat(a.Confidence, 'f', 2, 64),
		a.EntryLow.String(),
		a.EntryHigh.String(),
		a.StopLoss.String(),
		a.Target1.String(),
		a.Target2.String(),
		rr,
		strconv.FormatInt(a.SharesAffordable, 10),
		at,
	}
}
