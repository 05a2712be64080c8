package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/newthinker/momentum/internal/alert"
	"github.com/newthinker/momentum/internal/commentary"
	"github.com/newthinker/momentum/internal/config"
	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/llm/factory"
	"github.com/newthinker/momentum/internal/logger"
	"github.com/newthinker/momentum/internal/metrics"
	"github.com/newthinker/momentum/internal/notifier"
	"github.com/newthinker/momentum/internal/notifier/email"
	"github.com/newthinker/momentum/internal/notifier/kafka"
	"github.com/newthinker/momentum/internal/notifier/telegram"
	"github.com/newthinker/momentum/internal/notifier/webhook"
	"github.com/newthinker/momentum/internal/router"
	"github.com/newthinker/momentum/internal/scanner"
	"github.com/newthinker/momentum/internal/signal"
	"github.com/newthinker/momentum/internal/source"
	"github.com/newthinker/momentum/internal/source/alpaca"
	"github.com/newthinker/momentum/internal/source/binance"
	"github.com/newthinker/momentum/internal/source/coingecko"
	"github.com/newthinker/momentum/internal/source/screener"
	"github.com/newthinker/momentum/internal/source/yahoo"
	"github.com/newthinker/momentum/internal/storage/archive"
	"github.com/newthinker/momentum/internal/storage/report"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// app bundles everything a command needs, built once from config.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Registry
	engine  *signal.Engine
	router  *router.Router
	reports report.Store
	scanner *scanner.Scanner
	closers []io.Closer
}

type appOptions struct {
	// alerts routes assessments to notifiers
	alerts bool
}

func newApp(cfg *config.Config, log *zap.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, log: log, reports: report.NewMemoryStore(200)}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}

	engine, err := buildEngine(cfg.Signal)
	if err != nil {
		return nil, err
	}
	a.engine = engine

	sources, err := buildSources(cfg, logger.Component(log, "source"), a.metrics)
	if err != nil {
		return nil, err
	}

	scanOpts := []scanner.Option{scanner.WithStore(a.reports)}
	if a.metrics != nil {
		scanOpts = append(scanOpts, scanner.WithMetrics(a.metrics))
	}

	if opts.alerts {
		notifiers, closers, err := buildNotifiers(cfg, logger.Component(log, "notifier"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closers...)
		a.router = router.New(routerConfig(cfg.Router), notifiers, logger.Component(log, "router"))
		if a.metrics != nil {
			a.router.SetObserver(a.metrics.RecordAlert)
		}
		scanOpts = append(scanOpts, scanner.WithRouter(a.router))

		if len(cfg.Alerts.Rules) > 0 {
			eval := buildEvaluator(cfg.Alerts, notifiers, logger.Component(log, "alert"))
			scanOpts = append(scanOpts, scanner.WithHook(eval.ObserveScan))
		}
	}

	exporter, err := buildExporter(cfg.Archive)
	if err != nil {
		a.Close()
		return nil, err
	}
	if exporter != nil {
		scanOpts = append(scanOpts, scanner.WithExporter(exporter))
	}

	provider, err := factory.New(cfg.LLM)
	if err != nil {
		a.Close()
		return nil, err
	}
	if provider != nil {
		scanOpts = append(scanOpts, scanner.WithCommentator(
			commentary.New(provider, logger.Component(log, "commentary"), 0)))
	}

	a.scanner = scanner.New(scannerConfig(cfg.Scanner), sources, engine, logger.Component(log, "scanner"), scanOpts...)
	return a, nil
}

// Close releases notifier connections
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}

// buildEvaluator sends scan health alerts to the log and to every
// notifier that accepts plain-text alerts.
func buildEvaluator(c config.AlertsConfig, notifiers *notifier.Registry, log *zap.Logger) *alert.Evaluator {
	sinks := []alert.Notifier{alert.NewLogNotifier(log)}
	for _, name := range notifiers.Names() {
		n, _ := notifiers.Get(name)
		if an, ok := n.(alert.Notifier); ok {
			sinks = append(sinks, an)
		}
	}

	eval := alert.NewEvaluator(c.Rules, sinks, log)
	if c.Cooldown > 0 {
		eval.SetCooldown(c.Cooldown)
	}
	return eval
}

func scannerConfig(c config.ScannerConfig) scanner.Config {
	return scanner.Config{
		Source:      c.Source,
		Tickers:     c.Tickers,
		BuyingPower: decimal.NewFromFloat(c.BuyingPower),
		MaxPrice:    decimal.NewFromFloat(c.MaxPrice),
		MinVolume:   c.MinVolume,
		Interval:    c.Interval,
	}
}

func routerConfig(c config.RouterConfig) router.Config {
	rc := router.Config{MinConfidence: c.MinConfidence, Cooldown: c.Cooldown}
	for _, s := range c.Signals {
		if sig, ok := core.ParseSignal(s); ok {
			rc.Signals = append(rc.Signals, sig)
		}
	}
	return rc
}

// buildEngine applies non-zero overrides on top of the stock policy.
func buildEngine(c config.SignalConfig) (*signal.Engine, error) {
	th := signal.DefaultThresholds()
	if c.LongChange != 0 {
		th.LongChange = decimal.NewFromFloat(c.LongChange)
	}
	if c.ShortChange != 0 {
		th.ShortChange = decimal.NewFromFloat(c.ShortChange)
	}
	if c.FlatChange != 0 {
		th.FlatChange = decimal.NewFromFloat(c.FlatChange)
	}
	if c.MomentumVolume != 0 {
		th.MomentumVolume = c.MomentumVolume
	}
	if c.ThinVolume != 0 {
		th.ThinVolume = c.ThinVolume
	}

	m := signal.DefaultMultipliers()
	for _, o := range []struct {
		v   float64
		dst *decimal.Decimal
	}{
		{c.EntryLow, &m.EntryLow},
		{c.EntryHigh, &m.EntryHigh},
		{c.StopLoss, &m.StopLoss},
		{c.Target1, &m.Target1},
		{c.Target2, &m.Target2},
	} {
		if o.v != 0 {
			*o.dst = decimal.NewFromFloat(o.v)
		}
	}

	if err := th.Validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return signal.NewEngine(signal.WithThresholds(th), signal.WithMultipliers(m)), nil
}

// buildSources registers every enabled source, wrapped in a TTL cache
// when cache_ttl is set.
func buildSources(cfg *config.Config, log *zap.Logger, reg *metrics.Registry) (*source.Registry, error) {
	sources := source.NewRegistry()

	names := make([]string, 0, len(cfg.Sources))
	for name := range cfg.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sc := cfg.Sources[name]
		if !sc.Enabled {
			continue
		}

		var src source.Source
		switch name {
		case "yahoo":
			opts := []yahoo.Option{yahoo.WithBaseline(cfg.Scanner.ChangeBaseline), yahoo.WithLogger(log)}
			if sc.URL != "" {
				opts = append(opts, yahoo.WithBaseURL(sc.URL))
			}
			src = yahoo.New(opts...)
		case "binance":
			if sc.URL != "" {
				src = binance.NewWithBaseURL(sc.URL)
			} else {
				src = binance.New()
			}
		case "coingecko":
			if sc.URL != "" {
				src = coingecko.NewWithBaseURL(sc.APIKey, sc.URL)
			} else {
				src = coingecko.New(sc.APIKey)
			}
		case "alpaca":
			if sc.APIKey == "" || sc.APISecret == "" {
				return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("alpaca api_key and api_secret are required"))
			}
			src = alpaca.New(sc.APIKey, sc.APISecret, sc.URL, cfg.Scanner.ChangeBaseline)
		case "screener":
			s, err := screener.New(screener.Config{URL: sc.URL, Selector: sc.Selector, Columns: sc.Columns})
			if err != nil {
				return nil, fmt.Errorf("source screener: %w", err)
			}
			src = s
		default:
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown source %q", name))
		}

		var cacheOpts []source.CacheOption
		if reg != nil {
			cacheOpts = append(cacheOpts, source.WithObserver(reg.RecordCache))
		}
		sources.Register(source.NewCached(src, sc.CacheTTL, cacheOpts...))
		log.Debug("source enabled", zap.String("source", name), zap.Duration("cache_ttl", sc.CacheTTL))
	}
	return sources, nil
}

// buildNotifiers registers enabled notifiers. The returned closers must be
// closed on shutdown.
func buildNotifiers(cfg *config.Config, log *zap.Logger) (*notifier.Registry, []io.Closer, error) {
	reg := notifier.NewRegistry()
	var closers []io.Closer

	fail := func(err error) (*notifier.Registry, []io.Closer, error) {
		for _, c := range closers {
			c.Close()
		}
		return nil, nil, err
	}

	names := make([]string, 0, len(cfg.Notifiers))
	for name := range cfg.Notifiers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		nc := cfg.Notifiers[name]
		if !nc.Enabled {
			continue
		}

		var n notifier.Notifier
		switch name {
		case "telegram":
			t, err := telegram.New(nc.BotToken, nc.ChatID)
			if err != nil {
				return fail(err)
			}
			n = t
		case "webhook":
			w, err := webhook.New(nc.URL, nc.Headers)
			if err != nil {
				return fail(err)
			}
			n = w
		case "email":
			e, err := email.New(email.Config{
				Host:     nc.SMTPHost,
				Port:     nc.SMTPPort,
				Username: nc.Username,
				Password: nc.Password,
				From:     nc.From,
				To:       nc.To,
			})
			if err != nil {
				return fail(err)
			}
			n = e
		case "kafka":
			k, err := kafka.New(nc.Brokers, nc.Topic, log)
			if err != nil {
				return fail(err)
			}
			closers = append(closers, k)
			n = k
		default:
			return fail(core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown notifier %q", name)))
		}

		if err := reg.Register(n); err != nil {
			return fail(err)
		}
		log.Debug("notifier enabled", zap.String("notifier", name))
	}
	return reg, closers, nil
}

// buildExporter returns nil when archiving is disabled.
func buildExporter(c config.ArchiveConfig) (*archive.Exporter, error) {
	if !c.Enabled {
		return nil, nil
	}

	var store archive.Storage
	switch c.Type {
	case "", "localfs":
		fs, err := archive.NewLocalFS(c.Path)
		if err != nil {
			return nil, err
		}
		store = fs
	case "s3":
		s3, err := archive.NewS3(archive.S3Config{
			Bucket:    c.S3.Bucket,
			Endpoint:  c.S3.Endpoint,
			Region:    c.S3.Region,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
			Prefix:    c.S3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		store = s3
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive type %q", c.Type))
	}
	return archive.NewExporter(store), nil
}
