// Package render draws scan results for the terminal and as JSON.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/newthinker/momentum/internal/core"
	"github.com/tidwall/pretty"
)

var (
	longColor  = lipgloss.Color("#33cc33")
	shortColor = lipgloss.Color("#cc3300")
	dimColor   = lipgloss.Color("#777777")
	frameColor = lipgloss.Color("#0077cc")

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(frameColor).
			Padding(0, 1)
	setupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(frameColor).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
)

// Columns is the header row of the movers table
var Columns = []string{
	"Ticker", "Price", "Change", "Volume", "Signal", "Conf",
	"Entry", "Stop", "T1", "T2", "R/R", "Shares",
}

// SignalStyle colours a row by its label
func SignalStyle(s core.Signal) lipgloss.Style {
	switch s {
	case core.SignalLong:
		return cellStyle.Foreground(longColor)
	case core.SignalShort:
		return cellStyle.Foreground(shortColor)
	case core.SignalAvoid:
		return cellStyle.Foreground(dimColor).Faint(true)
	default:
		return cellStyle
	}
}

// Row returns the table cells of one assessment
func Row(a core.TradeAssessment) []string {
	return []string{
		a.Ticker,
		core.FormatPrice(a.Price),
		core.FormatChange(a.PercentChange),
		FormatVolume(a.Volume),
		string(a.Signal),
		core.FormatConfidence(a.Confidence),
		core.FormatPrice(a.EntryLow) + "-" + core.FormatPrice(a.EntryHigh),
		core.FormatPrice(a.StopLoss),
		core.FormatPrice(a.Target1),
		core.FormatPrice(a.Target2),
		core.FormatRiskReward(a.RiskReward),
		fmt.Sprintf("%d", a.SharesAffordable),
	}
}

// Table renders assessments in order. limit > 0 keeps only the first
// limit rows.
func Table(as []core.TradeAssessment, limit int) string {
	if limit > 0 && len(as) > limit {
		as = as[:limit]
	}

	rows := make([][]string, len(as))
	for i, a := range as {
		rows[i] = Row(a)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(dimColor)).
		Headers(Columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return SignalStyle(as[row].Signal)
		})
	return t.String()
}

// TopSetup renders the detailed block for the leading mover.
func TopSetup(a core.TradeAssessment, commentary string) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Suggested Trade Setup"))
	sb.WriteString("\n\n")

	line := func(label, value string) {
		sb.WriteString(fmt.Sprintf("%-18s %s\n", label+":", value))
	}
	ticker := a.Ticker
	if a.Name != "" {
		ticker += " (" + a.Name + ")"
	}
	line("Ticker", ticker)
	line("Signal", SignalStyle(a.Signal).UnsetPadding().Render(string(a.Signal)))
	line("Current Price", core.FormatPrice(a.Price)+" ("+core.FormatChange(a.PercentChange)+")")
	line("Entry Zone", core.FormatPrice(a.EntryLow)+" - "+core.FormatPrice(a.EntryHigh))
	line("Stop Loss", core.FormatPrice(a.StopLoss))
	line("Target 1", core.FormatPrice(a.Target1))
	line("Target 2", core.FormatPrice(a.Target2))
	line("Risk/Reward", core.FormatRiskReward(a.RiskReward))
	line("Confidence Score", core.FormatConfidence(a.Confidence))
	line("Shares Affordable", fmt.Sprintf("%d", a.SharesAffordable))

	if commentary != "" {
		sb.WriteString("\n")
		sb.WriteString(commentary)
	}
	return setupStyle.Render(strings.TrimRight(sb.String(), "\n"))
}

// Report writes the full terminal view of a scan.
func Report(w io.Writer, r core.ScanReport, limit int) error {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("Top Movers - %s", r.Source)))
	sb.WriteString("\n")

	top, ok := r.Top()
	if !ok {
		sb.WriteString("No qualified movers found at this time.\n")
	} else {
		sb.WriteString(Table(r.Assessments, limit))
		sb.WriteString("\n\n")
		sb.WriteString(TopSetup(top, r.Commentary))
		sb.WriteString("\n")
	}

	sb.WriteString(footerStyle.Render(fmt.Sprintf(
		"%d assessed | %d filtered | %d dropped | %d alerted | %s",
		len(r.Assessments), r.Filtered, len(r.Dropped), r.Alerted,
		r.FinishedAt.Format("15:04:05"))))
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// JSON marshals v and prettifies it. color adds ANSI highlighting for
// terminals.
func JSON(v any, color bool) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	data = pretty.Pretty(data)
	if color {
		data = pretty.Color(data, nil)
	}
	return data, nil
}

// FormatVolume abbreviates share counts: 650K, 1.25M, 3.1B.
func FormatVolume(v int64) string {
	f := float64(v)
	switch {
	case v >= 1_000_000_000:
		return trimZeros(fmt.Sprintf("%.2f", f/1e9)) + "B"
	case v >= 1_000_000:
		return trimZeros(fmt.Sprintf("%.2f", f/1e6)) + "M"
	case v >= 10_000:
		return trimZeros(fmt.Sprintf("%.1f", f/1e3)) + "K"
	default:
		return fmt.Sprintf("%d", v)
	}
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	return strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
}
