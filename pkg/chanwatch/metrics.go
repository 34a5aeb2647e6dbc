package chanwatch

import (
	"context"

	"chanwatch/pkg/chanwatch/o11y"
)

// Metrics holds the metric instruments collected by the monitor. All
// methods are safe to call on a nil receiver, which disables collection.
type Metrics struct {
	// Poller metrics
	polls      o11y.Counter // Total REST polls attempted
	pollErrors o11y.Counter // REST polls that failed

	// Gateway metrics
	gatewayConnects    o11y.Counter // Successful gateway sessions established
	gatewayDisconnects o11y.Counter // Gateway sessions ended (error or close)
	gatewayEvents      o11y.Counter // Dispatch events received for the watched channel
	heartbeatsSent     o11y.Counter // Heartbeat frames sent

	// Change detection metrics
	nameChanges o11y.Counter // Confirmed name changes (either source)
	alerts      o11y.Counter // Alerts actually triggered
	alertActive o11y.Gauge   // 1 while an alert loop is running
}

// NewMetrics creates a Metrics instance using the provided MetricsProvider.
// If the provider is nil, returns nil (no metrics will be collected).
func NewMetrics(provider o11y.MetricsProvider) *Metrics {
	if provider == nil {
		return nil
	}

	return &Metrics{
		polls:      provider.Counter("chanwatch_polls_total"),
		pollErrors: provider.Counter("chanwatch_poll_errors_total"),

		gatewayConnects:    provider.Counter("chanwatch_gateway_connects_total"),
		gatewayDisconnects: provider.Counter("chanwatch_gateway_disconnects_total"),
		gatewayEvents:      provider.Counter("chanwatch_gateway_events_total"),
		heartbeatsSent:     provider.Counter("chanwatch_heartbeats_sent_total"),

		nameChanges: provider.Counter("chanwatch_name_changes_total"),
		alerts:      provider.Counter("chanwatch_alerts_triggered_total"),
		alertActive: provider.Gauge("chanwatch_alert_active"),
	}
}

// RecordPoll records one poll attempt and whether it failed.
func (m *Metrics) RecordPoll(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.polls.Add(ctx, 1)
	if err != nil {
		m.pollErrors.Add(ctx, 1)
	}
}

// RecordGatewayConnect records a successfully authenticated gateway session.
func (m *Metrics) RecordGatewayConnect(ctx context.Context) {
	if m == nil {
		return
	}
	m.gatewayConnects.Add(ctx, 1)
}

// RecordGatewayDisconnect records the end of a gateway session.
func (m *Metrics) RecordGatewayDisconnect(ctx context.Context) {
	if m == nil {
		return
	}
	m.gatewayDisconnects.Add(ctx, 1)
}

// RecordGatewayEvent records a dispatch event for the watched channel.
func (m *Metrics) RecordGatewayEvent(ctx context.Context) {
	if m == nil {
		return
	}
	m.gatewayEvents.Add(ctx, 1)
}

// RecordHeartbeat records a heartbeat frame sent to the gateway.
func (m *Metrics) RecordHeartbeat(ctx context.Context) {
	if m == nil {
		return
	}
	m.heartbeatsSent.Add(ctx, 1)
}

// RecordNameChange records a confirmed channel name change.
func (m *Metrics) RecordNameChange(ctx context.Context) {
	if m == nil {
		return
	}
	m.nameChanges.Add(ctx, 1)
}

// RecordAlertTriggered records the start of an alert loop.
func (m *Metrics) RecordAlertTriggered(ctx context.Context) {
	if m == nil {
		return
	}
	m.alerts.Add(ctx, 1)
	m.alertActive.Set(ctx, 1)
}

// RecordAlertStopped records the end of an alert loop.
func (m *Metrics) RecordAlertStopped(ctx context.Context) {
	if m == nil {
		return
	}
	m.alertActive.Set(ctx, -1)
}
