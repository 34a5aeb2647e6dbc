// Package monitor wires the poller, the gateway client, and the alert
// controller into one long-running watch on a single channel.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"chanwatch/pkg/chanwatch"
	"chanwatch/pkg/chanwatch/alert"
	"chanwatch/pkg/chanwatch/gateway"
	"chanwatch/pkg/chanwatch/o11y"
)

// Monitor runs both detection paths against one shared state for the
// lifetime of its context.
type Monitor struct {
	fetcher   *chanwatch.Fetcher
	poller    *chanwatch.Poller
	client    *gateway.Client
	state     *chanwatch.State
	alerter   *alert.Controller
	channelID string
	logger    *zap.Logger
}

// Builder provides a fluent interface for building monitors.
type Builder struct {
	token           string
	channelID       string
	soundPath       string
	apiBase         string
	gatewayURL      string
	pollInterval    time.Duration
	reconnectDelay  time.Duration
	logger          *zap.Logger
	metricsProvider o11y.MetricsProvider
	notifier        alert.Notifier
}

// NewMonitor creates a new monitor builder.
func NewMonitor() *Builder {
	return &Builder{
		logger: zap.NewNop(),
	}
}

// WithToken sets the service credential.
func (b *Builder) WithToken(token string) *Builder {
	b.token = token
	return b
}

// WithChannelID sets the id of the watched channel.
func (b *Builder) WithChannelID(channelID string) *Builder {
	b.channelID = channelID
	return b
}

// WithSoundPath sets the alarm sound file played on a change.
func (b *Builder) WithSoundPath(soundPath string) *Builder {
	b.soundPath = soundPath
	return b
}

// WithAPIBase overrides the REST endpoint. Used by tests.
func (b *Builder) WithAPIBase(apiBase string) *Builder {
	b.apiBase = apiBase
	return b
}

// WithGatewayURL overrides the streaming endpoint. Used by tests.
func (b *Builder) WithGatewayURL(url string) *Builder {
	b.gatewayURL = url
	return b
}

// WithPollInterval overrides the REST poll interval.
func (b *Builder) WithPollInterval(interval time.Duration) *Builder {
	b.pollInterval = interval
	return b
}

// WithReconnectDelay overrides the gateway reconnect delay.
func (b *Builder) WithReconnectDelay(delay time.Duration) *Builder {
	b.reconnectDelay = delay
	return b
}

// WithLogger sets the logger shared by all components.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithMetricsProvider sets an optional metrics provider.
func (b *Builder) WithMetricsProvider(provider o11y.MetricsProvider) *Builder {
	b.metricsProvider = provider
	return b
}

// WithNotifier overrides the notification/playback implementation. Tests
// substitute fakes; the default shells out to notify-send and mpv.
func (b *Builder) WithNotifier(notifier alert.Notifier) *Builder {
	b.notifier = notifier
	return b
}

// Build creates the monitor and all of its components.
func (b *Builder) Build() (*Monitor, error) {
	if b.token == "" {
		return nil, fmt.Errorf("token is required")
	}
	if b.channelID == "" {
		return nil, fmt.Errorf("channel id is required")
	}

	notifier := b.notifier
	if notifier == nil {
		notifier = alert.NewExecNotifier(b.soundPath)
	}

	metrics := chanwatch.NewMetrics(b.metricsProvider)

	alerter, err := alert.NewController().
		WithNotifier(notifier).
		WithLogger(b.logger).
		WithMetrics(metrics).
		Build()
	if err != nil {
		return nil, err
	}

	state := chanwatch.NewState()
	fetcher := chanwatch.NewFetcher(b.token, b.apiBase)
	reconciler := chanwatch.NewReconciler(state, alerter, b.logger, metrics)
	poller := chanwatch.NewPoller(fetcher, b.channelID, b.pollInterval, reconciler, b.logger, metrics)

	client, err := gateway.NewClient().
		WithURL(b.gatewayURL).
		WithToken(b.token).
		WithChannelID(b.channelID).
		WithLogger(b.logger).
		WithReconnectDelay(b.reconnectDelay).
		WithReconciler(reconciler).
		WithMetrics(metrics).
		Build()
	if err != nil {
		return nil, err
	}

	return &Monitor{
		fetcher:   fetcher,
		poller:    poller,
		client:    client,
		state:     state,
		alerter:   alerter,
		channelID: b.channelID,
		logger:    b.logger,
	}, nil
}

// Alerter returns the alert controller, for operator commands that need to
// stop a running alarm or fire a test alert.
func (m *Monitor) Alerter() *alert.Controller {
	return m.alerter
}

// State returns the shared last-known-name state.
func (m *Monitor) State() *chanwatch.State {
	return m.state
}

// Run bootstraps the shared state with one initial fetch, then runs the
// poller and the gateway client until ctx is cancelled. A failed bootstrap
// fetch is logged and the loops start from the empty state.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("Fetching initial channel state", zap.String("channelId", m.channelID))

	name, err := m.fetcher.Fetch(ctx, m.channelID)
	if err != nil {
		m.logger.Warn("Failed to fetch initial channel state", zap.Error(err))
	} else {
		m.logger.Info("Initial channel name", zap.Stringer("name", name))
		m.state.Store(name)
	}

	m.logger.Info("Starting dual-mode monitoring")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.poller.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		m.client.Run(ctx)
	}()
	wg.Wait()
}
