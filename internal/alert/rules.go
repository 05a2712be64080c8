// Package alert raises operational alerts from scan health, e.g. a
// source that keeps failing or a feed whose rows stop parsing.
package alert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/momentum/internal/core"
)

// Rule defines an alert rule over scan health metrics.
type Rule struct {
	Name     string        `mapstructure:"name"`
	Expr     string        `mapstructure:"expr"`
	For      time.Duration `mapstructure:"for"`
	Severity string        `mapstructure:"severity"`
	Message  string        `mapstructure:"message"`
}

// "metric op value"
var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?[\d.]+)$`)

type condition struct {
	metric    string
	op        string
	threshold float64
}

func parseExpr(expr string) (condition, error) {
	m := exprPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if len(m) != 4 {
		return condition{}, fmt.Errorf("expression %q is not of the form \"metric op value\"", expr)
	}
	threshold, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return condition{}, fmt.Errorf("expression %q: %w", expr, err)
	}
	return condition{metric: m[1], op: m[2], threshold: threshold}, nil
}

// Validate checks the rule can be evaluated
func (r *Rule) Validate() error {
	if r.Name == "" {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("alert rule name is required"))
	}
	if _, err := parseExpr(r.Expr); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("alert rule %s: %w", r.Name, err))
	}
	if r.For < 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("alert rule %s: for cannot be negative", r.Name))
	}
	return nil
}

// Evaluate reports whether the rule's condition holds. Malformed
// expressions and missing metrics never match.
func (r *Rule) Evaluate(metrics map[string]float64) bool {
	c, err := parseExpr(r.Expr)
	if err != nil {
		return false
	}

	value, exists := metrics[c.metric]
	if !exists {
		return false
	}

	switch c.op {
	case ">":
		return value > c.threshold
	case "<":
		return value < c.threshold
	case ">=":
		return value >= c.threshold
	case "<=":
		return value <= c.threshold
	case "==":
		return value == c.threshold
	case "!=":
		return value != c.threshold
	default:
		return false
	}
}

// FormatMessage renders the alert with the observed metric value.
func (r *Rule) FormatMessage(metrics map[string]float64) string {
	msg := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(r.Severity), r.Name, r.Message)
	if c, err := parseExpr(r.Expr); err == nil {
		if v, ok := metrics[c.metric]; ok {
			msg += fmt.Sprintf(" (%s=%s)", c.metric, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return msg
}
