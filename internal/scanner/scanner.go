// Package scanner runs scan cycles: fetch raw rows, normalize, screen,
// assess, then hand the results to routing, commentary and archiving.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/momentum/internal/commentary"
	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/metrics"
	"github.com/newthinker/momentum/internal/normalize"
	"github.com/newthinker/momentum/internal/router"
	"github.com/newthinker/momentum/internal/signal"
	"github.com/newthinker/momentum/internal/source"
	"github.com/newthinker/momentum/internal/storage/archive"
	"github.com/newthinker/momentum/internal/storage/report"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config is the screening policy of a scan.
type Config struct {
	Source      string
	Tickers     []string
	BuyingPower decimal.Decimal
	// MaxPrice is ignored when zero.
	MaxPrice  decimal.Decimal
	MinVolume int64
	Interval  time.Duration
}

// Request overrides the configured source or tickers for one scan.
type Request struct {
	Source  string
	Tickers []string
}

// Scanner orchestrates scan cycles
type Scanner struct {
	cfg     Config
	sources *source.Registry
	engine  *signal.Engine
	logger  *zap.Logger

	router      *router.Router
	exporter    *archive.Exporter
	store       report.Store
	commentator *commentary.Commentator
	metrics     *metrics.Registry

	hooks []Hook

	now   func() time.Time
	newID func() string

	// scans are serialized so cron, interval and API triggers never overlap
	scanMu sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// Option configures a Scanner
type Option func(*Scanner)

func WithRouter(r *router.Router) Option { return func(s *Scanner) { s.router = r } }

func WithExporter(e *archive.Exporter) Option { return func(s *Scanner) { s.exporter = e } }

func WithStore(st report.Store) Option { return func(s *Scanner) { s.store = st } }

func WithCommentator(c *commentary.Commentator) Option {
	return func(s *Scanner) { s.commentator = c }
}

func WithMetrics(m *metrics.Registry) Option { return func(s *Scanner) { s.metrics = m } }

// Hook observes finished scans. r is nil when err is set.
type Hook func(ctx context.Context, r *core.ScanReport, err error)

// WithHook runs fn after every scan
func WithHook(fn Hook) Option { return func(s *Scanner) { s.hooks = append(s.hooks, fn) } }

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option { return func(s *Scanner) { s.now = now } }

// WithIDs replaces the uuid generator, for tests
func WithIDs(next func() string) Option { return func(s *Scanner) { s.newID = next } }

// New creates a scanner. engine defaults to the stock policy.
func New(cfg Config, sources *source.Registry, engine *signal.Engine, logger *zap.Logger, opts ...Option) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = signal.NewEngine()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	s := &Scanner{
		cfg:     cfg,
		sources: sources,
		engine:  engine,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the scanner's policy
func (s *Scanner) Config() Config {
	return s.cfg
}

// Engine returns the signal engine used for assessments
func (s *Scanner) Engine() *signal.Engine {
	return s.engine
}

// RunOnce performs one scan with the configured source and tickers.
func (s *Scanner) RunOnce(ctx context.Context) (*core.ScanReport, error) {
	return s.Scan(ctx, Request{})
}

// Scan performs one scan cycle. Routing, commentary, archiving and
// storage failures are logged; only fetch and engine failures fail the
// scan. Hooks see every outcome.
func (s *Scanner) Scan(ctx context.Context, req Request) (*core.ScanReport, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	r, err := s.scan(ctx, req)
	for _, h := range s.hooks {
		h(ctx, r, err)
	}
	return r, err
}

func (s *Scanner) scan(ctx context.Context, req Request) (*core.ScanReport, error) {
	name := req.Source
	if name == "" {
		name = s.cfg.Source
	}
	tickers := req.Tickers
	if len(tickers) == 0 {
		tickers = s.cfg.Tickers
	}

	src, ok := s.sources.Get(name)
	if !ok {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("source %q is not enabled", name))
	}

	r := &core.ScanReport{
		ID:        s.newID(),
		Source:    name,
		StartedAt: s.now(),
	}
	log := s.logger.With(zap.String("scan_id", r.ID), zap.String("source", name))

	rows, err := src.FetchRows(ctx, tickers)
	if err != nil {
		s.recordScan(name, "error", r.StartedAt)
		log.Error("fetch failed", zap.Error(err))
		return nil, fmt.Errorf("fetching from %s: %w", name, err)
	}

	n, err := normalize.New(src.Columns())
	if err != nil {
		s.recordScan(name, "error", r.StartedAt)
		return nil, fmt.Errorf("source %s: %w", name, err)
	}
	res := n.Normalize(rows)
	for _, d := range res.Dropped {
		log.Debug("row dropped", zap.Int("index", d.Index), zap.String("field", d.Field), zap.Error(d.Cause))
		dropped := core.DroppedRow{Index: d.Index, Field: d.Field, Value: fmt.Sprint(d.Value)}
		if d.Cause != nil {
			dropped.Reason = d.Cause.Error()
		}
		r.Dropped = append(r.Dropped, dropped)
	}

	kept := s.screen(res.Records)
	r.Filtered = len(res.Records) - len(kept)

	assessments, err := s.engine.AssessAll(kept, s.cfg.BuyingPower)
	if err != nil {
		s.recordScan(name, "error", r.StartedAt)
		return nil, err
	}
	stamp := s.now()
	for i := range assessments {
		assessments[i].AssessedAt = stamp
		if s.metrics != nil {
			s.metrics.RecordAssessment(string(assessments[i].Signal))
		}
	}
	signal.SortByChange(assessments)
	r.Assessments = assessments

	if s.router != nil {
		r.Alerted = len(s.router.RouteBatch(ctx, assessments))
	}
	s.commentator.Annotate(ctx, r)

	r.FinishedAt = s.now()

	if s.exporter != nil {
		key, err := s.exporter.Export(ctx, *r)
		if err != nil {
			log.Warn("archive failed", zap.Error(err))
		} else {
			r.ArchiveKey = key
		}
	}
	if s.store != nil {
		if err := s.store.Save(ctx, *r); err != nil {
			log.Warn("report not saved", zap.Error(err))
		}
	}

	if s.metrics != nil {
		s.metrics.RecordRows(name, "ok", len(res.Records))
		s.metrics.RecordRows(name, "dropped", len(res.Dropped))
		s.metrics.RecordRows(name, "filtered", r.Filtered)
	}
	s.recordScan(name, "success", r.StartedAt)

	log.Info("scan complete",
		zap.Int("rows", len(rows)),
		zap.Int("assessed", len(r.Assessments)),
		zap.Int("dropped", len(r.Dropped)),
		zap.Int("filtered", r.Filtered),
		zap.Int("alerted", r.Alerted),
		zap.Duration("duration", r.Duration()),
	)
	return r, nil
}

// screen applies the price ceiling and volume floor.
func (s *Scanner) screen(recs []core.QuoteRecord) []core.QuoteRecord {
	kept := make([]core.QuoteRecord, 0, len(recs))
	for _, rec := range recs {
		if s.cfg.MaxPrice.IsPositive() && rec.Price.GreaterThan(s.cfg.MaxPrice) {
			continue
		}
		if rec.Volume < s.cfg.MinVolume {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

func (s *Scanner) recordScan(name, status string, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordScan(name, status, s.now().Sub(started).Seconds())
}

// Start scans immediately and then every Interval until ctx is done or
// Stop is called.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scanner already running")
	}
	s.running = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("scanner starting",
		zap.String("source", s.cfg.Source),
		zap.Int("tickers", len(s.cfg.Tickers)),
		zap.Duration("interval", s.cfg.Interval),
	)

	s.tick(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner stopping")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop ends a running Start loop
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// IsRunning reports whether Start is looping
func (s *Scanner) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scanner) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("scan failed", zap.Error(err))
	}
}
