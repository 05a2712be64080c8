package main

import (
	"fmt"
	"strings"

	"github.com/newthinker/momentum/internal/normalize"
	"github.com/newthinker/momentum/internal/render"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	assessTicker string
	assessPrice  string
	assessChange string
	assessVolume string
	assessBudget string
	assessJSON   bool
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess a single quote without fetching data",
	Example: `  momentum assess --ticker RELI --price '$1.23' --change '+7.5%' --volume 650K
  momentum assess -t GNS -p 3.33 -v 2.1M --budget 50 --json`,
	RunE: runAssess,
}

func init() {
	assessCmd.Flags().StringVarP(&assessTicker, "ticker", "t", "", "ticker symbol")
	assessCmd.Flags().StringVarP(&assessPrice, "price", "p", "", "last price, e.g. $1.23")
	assessCmd.Flags().StringVar(&assessChange, "change", "", "percent change, e.g. +7.5%")
	assessCmd.Flags().StringVarP(&assessVolume, "volume", "v", "0", "volume, e.g. 650K")
	assessCmd.Flags().StringVar(&assessBudget, "budget", "", "buying power (overrides config)")
	assessCmd.Flags().BoolVar(&assessJSON, "json", false, "print the assessment as JSON")
	_ = assessCmd.MarkFlagRequired("ticker")
	_ = assessCmd.MarkFlagRequired("price")
	rootCmd.AddCommand(assessCmd)
}

func runAssess(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	engine, err := buildEngine(cfg.Signal)
	if err != nil {
		return err
	}

	cols := normalize.DefaultColumns()
	row := normalize.Row{
		cols.Ticker: assessTicker,
		cols.Price:  assessPrice,
		cols.Volume: assessVolume,
	}
	if assessChange != "" {
		row[cols.PercentChange] = assessChange
	}

	out := normalize.MustNew(cols).NormalizeRow(0, row)
	if !out.OK() {
		return out.Err
	}

	budget := scannerConfig(cfg.Scanner).BuyingPower
	if assessBudget != "" {
		budget, err = decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(assessBudget), "$"))
		if err != nil || budget.IsNegative() {
			return fmt.Errorf("invalid budget %q", assessBudget)
		}
	}

	a, err := engine.Assess(*out.Record, budget)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if assessJSON {
		data, err := render.JSON(a, false)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	_, err = fmt.Fprintln(w, render.TopSetup(a, ""))
	return err
}
