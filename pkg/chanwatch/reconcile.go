package chanwatch

import (
	"context"

	"go.uber.org/zap"
)

// Alerter is notified when the watched channel's name changes to a new,
// present value. Implemented by alert.Controller; tests substitute fakes.
type Alerter interface {
	Trigger(name string)
}

// Reconciler applies an observed name against shared state and fires the
// alerter when the observation is a confirmed change. Both the poller and
// the gateway client reconcile through the same instance, so a change seen
// by both at once alerts exactly once.
type Reconciler struct {
	state   *State
	alerter Alerter
	logger  *zap.Logger
	metrics *Metrics
}

// NewReconciler wires state, alerter, logger and metrics into a Reconciler.
// A nil logger is replaced with a no-op logger; nil metrics disable
// collection.
func NewReconciler(state *State, alerter Alerter, logger *zap.Logger, metrics *Metrics) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		state:   state,
		alerter: alerter,
		logger:  logger,
		metrics: metrics,
	}
}

// Observe reconciles one observation from the given source. Only the caller
// whose CompareAndSwap wins sees the change; the loser is a no-op. An alert
// fires only when the new name is present.
func (r *Reconciler) Observe(ctx context.Context, source string, name Name) {
	if !r.state.CompareAndSwap(name) {
		return
	}

	r.metrics.RecordNameChange(ctx)
	r.logger.Info("Channel name changed",
		zap.String("source", source),
		zap.Stringer("name", name),
	)

	if name.Valid {
		r.alerter.Trigger(name.Value)
	}
}
