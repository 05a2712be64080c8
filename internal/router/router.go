package router

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/momentum/internal/core"
	"github.com/newthinker/momentum/internal/notifier"
	"go.uber.org/zap"
)

// Config holds router configuration
type Config struct {
	MinConfidence float64
	Cooldown      time.Duration
	Signals       []core.Signal
}

// DefaultConfig returns default router configuration
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.6,
		Cooldown:      4 * time.Hour,
		Signals:       []core.Signal{core.SignalLong},
	}
}

// DeliveryObserver is told about every notifier outcome.
type DeliveryObserver func(notifier, status string)

// Router forwards actionable assessments to notifiers. An assessment
// passes when its signal is allowed, its confidence meets the minimum and
// its ticker is outside the cooldown window.
type Router struct {
	cfg       Config
	registry  *notifier.Registry
	logger    *zap.Logger
	now       func() time.Time
	observer  DeliveryObserver
	cooldowns map[string]time.Time // ticker -> last alert time
	mu        sync.RWMutex
}

// New creates a new assessment router
func New(cfg Config, registry *notifier.Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:       cfg,
		registry:  registry,
		logger:    logger,
		now:       time.Now,
		cooldowns: make(map[string]time.Time),
	}
}

// SetClock replaces time.Now
func (r *Router) SetClock(now func() time.Time) {
	r.now = now
}

// SetObserver registers a delivery observer, e.g. a metrics recorder
func (r *Router) SetObserver(fn DeliveryObserver) {
	r.observer = fn
}

// Route sends one assessment if it passes the filters. It reports whether
// the assessment was forwarded.
func (r *Router) Route(ctx context.Context, a core.TradeAssessment) bool {
	if !r.admit(a) {
		r.logger.Debug("assessment filtered out",
			zap.String("ticker", a.Ticker),
			zap.String("signal", string(a.Signal)),
			zap.Float64("confidence", a.Confidence),
		)
		return false
	}

	// Nil registry is allowed
	if r.registry == nil {
		return true
	}
	results := r.registry.NotifyAll(ctx, a)
	failed := r.report(results)

	r.logger.Info("assessment routed",
		zap.String("ticker", a.Ticker),
		zap.String("signal", string(a.Signal)),
		zap.Float64("confidence", a.Confidence),
		zap.Int("notifiers", len(results)),
		zap.Int("errors", failed),
	)
	return true
}

// RouteBatch filters assessments and sends the survivors as one batch.
// It returns the forwarded assessments.
func (r *Router) RouteBatch(ctx context.Context, as []core.TradeAssessment) []core.TradeAssessment {
	var routed []core.TradeAssessment
	for _, a := range as {
		if r.admit(a) {
			routed = append(routed, a)
		}
	}

	if len(routed) == 0 || r.registry == nil {
		return routed
	}

	failed := r.report(r.registry.NotifyAllBatch(ctx, routed))
	r.logger.Info("batch routed",
		zap.Int("total", len(as)),
		zap.Int("routed", len(routed)),
		zap.Int("errors", failed),
	)
	return routed
}

func (r *Router) report(results map[string]error) int {
	failed := 0
	for name, err := range results {
		status := "success"
		if err != nil {
			failed++
			status = "error"
			r.logger.Error("notifier failed", zap.String("notifier", name), zap.Error(err))
		}
		if r.observer != nil {
			r.observer(name, status)
		}
	}
	return failed
}

// admit applies the filters and, on success, starts the ticker's cooldown
// under the same lock so concurrent scans cannot double-alert.
func (r *Router) admit(a core.TradeAssessment) bool {
	if a.Confidence < r.cfg.MinConfidence {
		return false
	}

	if len(r.cfg.Signals) > 0 {
		allowed := false
		for _, s := range r.cfg.Signals {
			if a.Signal == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if last, ok := r.cooldowns[a.Ticker]; ok && now.Sub(last) < r.cfg.Cooldown {
		return false
	}
	r.cooldowns[a.Ticker] = now
	return true
}

// ClearCooldown removes cooldown for a specific ticker
func (r *Router) ClearCooldown(ticker string) {
	r.mu.Lock()
	delete(r.cooldowns, ticker)
	r.mu.Unlock()
}

// ClearAllCooldowns removes all cooldowns
func (r *Router) ClearAllCooldowns() {
	r.mu.Lock()
	r.cooldowns = make(map[string]time.Time)
	r.mu.Unlock()
}

// CleanupExpiredCooldowns removes cooldown entries older than 2x the cooldown duration.
func (r *Router) CleanupExpiredCooldowns() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	expiry := r.cfg.Cooldown * 2
	removed := 0

	for ticker, last := range r.cooldowns {
		if now.Sub(last) > expiry {
			delete(r.cooldowns, ticker)
			removed++
		}
	}

	return removed
}

// StartCleanupRoutine starts a background goroutine that periodically cleans up expired cooldowns.
func (r *Router) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := r.CleanupExpiredCooldowns(); removed > 0 {
					r.logger.Debug("cleaned up expired cooldowns", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// Stats returns router statistics
func (r *Router) Stats() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]any{
		"cooldowns_active": len(r.cooldowns),
		"min_confidence":   r.cfg.MinConfidence,
		"cooldown_seconds": r.cfg.Cooldown.Seconds(),
		"signals":          r.cfg.Signals,
	}
}
