package alert

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/momentum/internal/core"
	"go.uber.org/zap"
)

// Notifier delivers a plain-text alert.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg string) error
}

// Scan health metrics exposed to rule expressions.
const (
	MetricScanFailed          = "scan_failed"
	MetricConsecutiveFailures = "consecutive_failures"
	MetricRowsTotal           = "rows_total"
	MetricRowsDropped         = "rows_dropped"
	MetricDropRatio           = "drop_ratio"
	MetricAssessed            = "assessed"
	MetricFiltered            = "filtered"
	MetricAlerted             = "alerted"
	MetricDurationSeconds     = "duration_seconds"
)

// Evaluator evaluates alert rules and sends notifications.
type Evaluator struct {
	rules     []Rule
	notifiers []Notifier
	logger    *zap.Logger
	metrics   map[string]float64
	cooldown  time.Duration

	// rule name -> first time the condition held, for rules with For
	pending map[string]time.Time
	// rule name -> last fired, for cooldown
	lastFired map[string]time.Time

	failures int

	now func() time.Time

	mu sync.Mutex
}

// NewEvaluator creates an evaluator with a 5 minute cooldown.
func NewEvaluator(rules []Rule, notifiers []Notifier, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		rules:     rules,
		notifiers: notifiers,
		logger:    logger,
		metrics:   make(map[string]float64),
		cooldown:  5 * time.Minute,
		pending:   make(map[string]time.Time),
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}
}

// SetMetrics updates the current metrics.
func (e *Evaluator) SetMetrics(metrics map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = metrics
}

// SetCooldown sets the cooldown duration between alerts.
func (e *Evaluator) SetCooldown(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cooldown = d
}

// SetClock replaces the time source
func (e *Evaluator) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// ObserveScan derives health metrics from a finished scan and evaluates
// every configured rule. Its signature fits scanner.Hook.
func (e *Evaluator) ObserveScan(ctx context.Context, r *core.ScanReport, err error) {
	e.mu.Lock()
	if err != nil {
		e.failures++
	} else {
		e.failures = 0
	}
	e.metrics = ScanMetrics(r, err, e.failures)
	e.mu.Unlock()

	e.EvaluateAll(ctx, e.rules)
}

// ScanMetrics flattens a scan outcome into rule inputs. A failed scan
// reports only the failure counters.
func ScanMetrics(r *core.ScanReport, err error, consecutiveFailures int) map[string]float64 {
	m := map[string]float64{
		MetricScanFailed:          0,
		MetricConsecutiveFailures: float64(consecutiveFailures),
	}
	if err != nil || r == nil {
		m[MetricScanFailed] = 1
		return m
	}

	total := len(r.Assessments) + r.Filtered + len(r.Dropped)
	m[MetricRowsTotal] = float64(total)
	m[MetricRowsDropped] = float64(len(r.Dropped))
	m[MetricDropRatio] = 0
	if total > 0 {
		m[MetricDropRatio] = float64(len(r.Dropped)) / float64(total)
	}
	m[MetricAssessed] = float64(len(r.Assessments))
	m[MetricFiltered] = float64(r.Filtered)
	m[MetricAlerted] = float64(r.Alerted)
	m[MetricDurationSeconds] = r.Duration().Seconds()
	return m
}

// Evaluate evaluates a single rule and notifies if it fires. It reports
// whether the rule fired.
func (e *Evaluator) Evaluate(ctx context.Context, rule Rule) bool {
	e.mu.Lock()
	msg, fire := e.check(rule)
	e.mu.Unlock()

	if !fire {
		return false
	}

	e.logger.Warn("alert fired", zap.String("rule", rule.Name), zap.String("severity", rule.Severity))
	for _, n := range e.notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			e.logger.Error("alert delivery failed",
				zap.String("rule", rule.Name),
				zap.String("notifier", n.Name()),
				zap.Error(err),
			)
		}
	}
	return true
}

// check advances the rule's pending and cooldown state. Caller holds mu.
func (e *Evaluator) check(rule Rule) (string, bool) {
	now := e.now()

	if !rule.Evaluate(e.metrics) {
		delete(e.pending, rule.Name)
		return "", false
	}

	if rule.For > 0 {
		pendingSince, isPending := e.pending[rule.Name]
		if !isPending {
			e.pending[rule.Name] = now
			return "", false
		}
		if now.Sub(pendingSince) < rule.For {
			return "", false
		}
	}

	if lastFired, ok := e.lastFired[rule.Name]; ok && now.Sub(lastFired) < e.cooldown {
		return "", false
	}

	e.lastFired[rule.Name] = now
	delete(e.pending, rule.Name)
	return rule.FormatMessage(e.metrics), true
}

// EvaluateAll evaluates all rules and returns how many fired.
func (e *Evaluator) EvaluateAll(ctx context.Context, rules []Rule) int {
	fired := 0
	for _, rule := range rules {
		if e.Evaluate(ctx, rule) {
			fired++
		}
	}
	return fired
}

// LogNotifier writes alerts to a logger
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that logs at error level
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Notify(ctx context.Context, msg string) error {
	l.logger.Error(msg)
	return nil
}
