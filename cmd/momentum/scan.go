package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/momentum/internal/render"
	"github.com/newthinker/momentum/internal/scanner"
	"github.com/spf13/cobra"
)

var (
	scanJSON     bool
	scanSource   string
	scanTickers  string
	scanTop      int
	scanNoAlerts bool
	scanTimeout  time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single scan and print the movers",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print the scan report as JSON")
	scanCmd.Flags().StringVarP(&scanSource, "source", "s", "", "data source (overrides config)")
	scanCmd.Flags().StringVarP(&scanTickers, "tickers", "t", "", "comma-separated tickers (overrides config)")
	scanCmd.Flags().IntVar(&scanTop, "top", 0, "rows to show (0 uses scanner.top, default 10)")
	scanCmd.Flags().BoolVar(&scanNoAlerts, "no-alerts", false, "do not send notifications")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 2*time.Minute, "scan timeout")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, log, appOptions{alerts: !scanNoAlerts})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
	defer cancel()

	report, err := a.scanner.Scan(ctx, scanner.Request{
		Source:  scanSource,
		Tickers: splitTickers(scanTickers),
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if scanJSON {
		data, err := render.JSON(report, false)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}
	return render.Report(out, *report, topLimit(scanTop, cfg.Scanner.Top))
}

func topLimit(flag, configured int) int {
	switch {
	case flag > 0:
		return flag
	case configured > 0:
		return configured
	default:
		return 10
	}
}

func splitTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
