package chanwatch

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is how often the REST poller checks the channel.
// Chosen to stay safely under the service's rate limit.
const DefaultPollInterval = 1500 * time.Millisecond

// Poller periodically fetches the channel over REST and reconciles the
// result against shared state. Fetch failures are logged and the loop
// continues on its fixed interval; there is no backoff and no terminal
// error.
type Poller struct {
	fetcher    *Fetcher
	channelID  string
	interval   time.Duration
	reconciler *Reconciler
	logger     *zap.Logger
	metrics    *Metrics
}

// NewPoller creates a Poller. A zero interval selects DefaultPollInterval.
func NewPoller(fetcher *Fetcher, channelID string, interval time.Duration, reconciler *Reconciler, logger *zap.Logger, metrics *Metrics) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		fetcher:    fetcher,
		channelID:  channelID,
		interval:   interval,
		reconciler: reconciler,
		logger:     logger.With(zap.String("source", "poll")),
		metrics:    metrics,
	}
}

// Run polls until ctx is cancelled. It sleeps first so the bootstrap fetch
// performed by the coordinator isn't immediately repeated.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		name, err := p.fetcher.Fetch(ctx, p.channelID)
		p.metrics.RecordPoll(ctx, err)
		if err != nil {
			p.logger.Warn("Failed to fetch channel", zap.Error(err))
			continue
		}

		p.reconciler.Observe(ctx, "poll", name)
	}
}
