package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/momentum/internal/core"
)

// Registry holds notifiers by name and fans deliveries out to all of
// them in name order.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Notifier
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]Notifier{}}
}

// Register fails when a notifier with the same name is already present.
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("notifier: duplicate name %q", name)
	}
	r.byName[name] = n
	r.order = append(r.order, name)
	sort.Strings(r.order)
	return nil
}

func (r *Registry) Get(name string) (Notifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.byName[name]
	return n, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// NotifyAll delivers a to every notifier. Every registered name appears
// in the result; failures are wrapped in core.ErrNotifierFailed.
func (r *Registry) NotifyAll(ctx context.Context, a core.TradeAssessment) map[string]error {
	return r.deliver(func(n Notifier) error { return n.Send(ctx, a) })
}

// NotifyAllBatch is NotifyAll for a batch. An empty batch is a no-op.
func (r *Registry) NotifyAllBatch(ctx context.Context, as []core.TradeAssessment) map[string]error {
	if len(as) == 0 {
		return map[string]error{}
	}
	return r.deliver(func(n Notifier) error { return n.SendBatch(ctx, as) })
}

func (r *Registry) deliver(send func(Notifier) error) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]error, len(r.order))
	for _, name := range r.order {
		var err error
		if cause := send(r.byName[name]); cause != nil {
			err = core.WrapError(core.ErrNotifierFailed, fmt.Errorf("%s: %w", name, cause))
		}
		out[name] = err
	}
	return out
}
