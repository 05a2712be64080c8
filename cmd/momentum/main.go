package main

import (
	"fmt"
	"os"

	"github.com/newthinker/momentum/internal/config"
	"github.com/newthinker/momentum/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	envFile string
	debug   bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "momentum",
	Short: "Momentum - penny stock and crypto momentum scanner",
	Long: `Momentum scans penny stocks and crypto for large moves on heavy volume,
labels each ticker LONG, SHORT, AVOID or UNCLEAR, and derives an entry zone,
stop loss and targets sized to your buying power.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	level := "info"
	if debug {
		level = "debug"
	}
	return logger.Must(logger.Options{Development: debug, Level: level, JSON: logJSON})
}

// loadConfig reads .env, then the config file (or defaults), and validates.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	var cfg *config.Config
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Debug("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
