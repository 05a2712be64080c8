package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/momentum/internal/api"
	"github.com/newthinker/momentum/internal/api/job"
	"github.com/newthinker/momentum/internal/logger"
	"github.com/newthinker/momentum/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchNoServer bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan continuously, send alerts and serve the API",
	Long: `watch runs scans on scanner.schedule (a cron expression) or, when no
schedule is set, every scanner.interval. Qualifying setups are routed to
the enabled notifiers and the HTTP API is served when server.enabled is set.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoServer, "no-server", false, "do not start the HTTP API")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, log, appOptions{alerts: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.router.StartCleanupRoutine(ctx, 10*time.Minute)

	var server *api.Server
	if cfg.Server.Enabled && !watchNoServer {
		server, err = api.NewServer(api.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			APIKey:      cfg.Server.APIKey,
			MetricsPath: cfg.Metrics.Path,
		}, api.Dependencies{
			Scanner:     a.scanner,
			Reports:     a.reports,
			Jobs:        job.NewStore(100, time.Hour),
			Engine:      a.engine,
			BuyingPower: a.scanner.Config().BuyingPower,
			Metrics:     a.metrics,
		}, logger.Component(log, "api"))
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}
		go func() {
			if err := server.Start(); err != nil {
				log.Error("server error", zap.Error(err))
				stop()
			}
		}()
	}

	if cfg.Scanner.Schedule != "" {
		err = runScheduled(ctx, a, cfg.Scanner.Schedule, log)
	} else {
		err = a.scanner.Start(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if server != nil {
		if serr := server.Shutdown(shutdownCtx); serr != nil {
			log.Warn("server shutdown failed", zap.Error(serr))
		}
	}
	return err
}

// runScheduled drives scans from a cron expression until ctx is done.
func runScheduled(ctx context.Context, a *app, spec string, log *zap.Logger) error {
	sched := scheduler.New(time.Local, logger.Component(log, "scheduler"))
	err := sched.Add("scan", spec, func(ctx context.Context) error {
		_, err := a.scanner.RunOnce(ctx)
		return err
	})
	if err != nil {
		return err
	}

	sched.Start()
	if next, ok := sched.Next("scan"); ok && !next.IsZero() {
		log.Info("scan scheduled", zap.String("schedule", spec), zap.Time("next", next))
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return sched.Stop(stopCtx)
}
