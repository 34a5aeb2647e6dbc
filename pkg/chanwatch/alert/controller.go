package alert

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"chanwatch/pkg/chanwatch"
)

const (
	// DefaultReplayDelay is the pause between alarm playbacks.
	DefaultReplayDelay = 3 * time.Second
	// DefaultCheckInterval is how often the pause re-checks the running
	// flag, so Stop takes effect quickly instead of after a full pause.
	DefaultCheckInterval = 100 * time.Millisecond
)

// Controller runs the alert loop: one notification, then repeated audio
// playback until stopped. At most one loop is active at a time; Trigger
// while a loop is running is a no-op, so overlapping changes never stack
// playback processes.
type Controller struct {
	notifier      Notifier
	logger        *zap.Logger
	metrics       *chanwatch.Metrics
	replayDelay   time.Duration
	checkInterval time.Duration

	running atomic.Bool
	// generation distinguishes loops across stop/retrigger cycles so a
	// loop still draining its pause can never resume after a new one has
	// started.
	generation atomic.Int64
}

// ControllerBuilder provides a fluent interface for building controllers.
type ControllerBuilder struct {
	notifier      Notifier
	logger        *zap.Logger
	metrics       *chanwatch.Metrics
	replayDelay   time.Duration
	checkInterval time.Duration
}

// NewController creates a new alert controller builder.
func NewController() *ControllerBuilder {
	return &ControllerBuilder{
		logger:        zap.NewNop(),
		replayDelay:   DefaultReplayDelay,
		checkInterval: DefaultCheckInterval,
	}
}

// WithNotifier sets the notification/playback implementation.
func (b *ControllerBuilder) WithNotifier(notifier Notifier) *ControllerBuilder {
	b.notifier = notifier
	return b
}

// WithLogger sets the logger for the controller.
func (b *ControllerBuilder) WithLogger(logger *zap.Logger) *ControllerBuilder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithMetrics sets an optional metrics collector.
func (b *ControllerBuilder) WithMetrics(metrics *chanwatch.Metrics) *ControllerBuilder {
	b.metrics = metrics
	return b
}

// WithReplayDelay sets the pause between playbacks. Tests use near-zero
// delays.
func (b *ControllerBuilder) WithReplayDelay(delay time.Duration) *ControllerBuilder {
	if delay > 0 {
		b.replayDelay = delay
	}
	return b
}

// WithCheckInterval sets how often the pause re-checks the running flag.
func (b *ControllerBuilder) WithCheckInterval(interval time.Duration) *ControllerBuilder {
	if interval > 0 {
		b.checkInterval = interval
	}
	return b
}

// Build creates and returns a new Controller with the configured options.
func (b *ControllerBuilder) Build() (*Controller, error) {
	if b.notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}

	return &Controller{
		notifier:      b.notifier,
		logger:        b.logger,
		metrics:       b.metrics,
		replayDelay:   b.replayDelay,
		checkInterval: b.checkInterval,
	}, nil
}

// Trigger starts the alert loop for the given channel name. If a loop is
// already active the call is a no-op; the running alarm already has the
// operator's attention.
func (c *Controller) Trigger(name string) {
	if !c.running.CompareAndSwap(false, true) {
		c.logger.Debug("Alert already active, ignoring trigger", zap.String("name", name))
		return
	}

	c.metrics.RecordAlertTriggered(context.Background())
	c.logger.Info("Alert triggered", zap.String("name", name))

	go c.loop(name, c.generation.Add(1))
}

// Stop clears the running flag. The loop exits within one check interval;
// an in-flight playback is left to finish on its own.
func (c *Controller) Stop() {
	c.running.Store(false)
}

// IsRunning reports whether an alert loop is currently active.
func (c *Controller) IsRunning() bool {
	return c.running.Load()
}

// active reports whether the loop of the given generation should keep
// going. A retriggered controller bumps the generation, ending any older
// loop even if the running flag is set again.
func (c *Controller) active(gen int64) bool {
	return c.running.Load() && c.generation.Load() == gen
}

func (c *Controller) loop(name string, gen int64) {
	ctx := context.Background()
	defer c.metrics.RecordAlertStopped(ctx)

	if err := c.notifier.Notify(ctx, "CHANNEL OPEN", fmt.Sprintf("Channel is now: %s", name)); err != nil {
		c.logger.Warn("Failed to send notification", zap.Error(err))
	}

	for c.active(gen) {
		if err := c.notifier.Play(ctx); err != nil {
			c.logger.Warn("Failed to play sound", zap.Error(err))
		}

		// Pause between playbacks in small slices so Stop is honored
		// within checkInterval rather than after the whole delay.
		deadline := time.Now().Add(c.replayDelay)
		for c.active(gen) && time.Now().Before(deadline) {
			time.Sleep(c.checkInterval)
		}
	}

	c.logger.Info("Alert stopped", zap.String("name", name))
}
