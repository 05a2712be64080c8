// Package notifier fans trade assessments out to delivery channels.
// Concrete channels live in subpackages.
package notifier

import (
	"context"

	"github.com/newthinker/momentum/internal/core"
)

// Notifier is one delivery channel. Name must be unique within a Registry.
type Notifier interface {
	Name() string
	Send(ctx context.Context, a core.TradeAssessment) error
	// SendBatch should deliver the batch as a single message where the
	// channel allows it.
	SendBatch(ctx context.Context, as []core.TradeAssessment) error
}
