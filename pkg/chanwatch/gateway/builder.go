package gateway

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"chanwatch/pkg/chanwatch"
)

// DefaultGatewayURL is the production streaming endpoint.
const DefaultGatewayURL = "wss://gateway.discord.gg/?v=9&encoding=json"

// DefaultReconnectDelay is how long the client waits between sessions.
const DefaultReconnectDelay = 5 * time.Second

// ClientBuilder provides a fluent interface for building gateway clients.
type ClientBuilder struct {
	url            string
	token          string
	channelID      string
	logger         *zap.Logger
	dialTimeout    time.Duration
	reconnectDelay time.Duration
	reconciler     *chanwatch.Reconciler
	metrics        *chanwatch.Metrics
}

// NewClient creates a new gateway client builder.
func NewClient() *ClientBuilder {
	return &ClientBuilder{
		url:            DefaultGatewayURL,
		logger:         zap.NewNop(),
		dialTimeout:    30 * time.Second,
		reconnectDelay: DefaultReconnectDelay,
	}
}

// WithURL overrides the gateway endpoint. Used by tests to point the client
// at an in-process server.
func (b *ClientBuilder) WithURL(url string) *ClientBuilder {
	if url != "" {
		b.url = url
	}
	return b
}

// WithToken sets the credential sent in the Identify frame.
func (b *ClientBuilder) WithToken(token string) *ClientBuilder {
	b.token = token
	return b
}

// WithChannelID sets the id of the watched channel. Dispatch events for
// other channels are ignored.
func (b *ClientBuilder) WithChannelID(channelID string) *ClientBuilder {
	b.channelID = channelID
	return b
}

// WithLogger sets the logger for the client.
func (b *ClientBuilder) WithLogger(logger *zap.Logger) *ClientBuilder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithDialTimeout sets the timeout for establishing the WebSocket connection.
func (b *ClientBuilder) WithDialTimeout(timeout time.Duration) *ClientBuilder {
	if timeout > 0 {
		b.dialTimeout = timeout
	}
	return b
}

// WithReconnectDelay sets the fixed wait between connection attempts.
// Tests use near-zero delays.
func (b *ClientBuilder) WithReconnectDelay(delay time.Duration) *ClientBuilder {
	if delay > 0 {
		b.reconnectDelay = delay
	}
	return b
}

// WithReconciler sets the reconciler that receives observed channel names.
func (b *ClientBuilder) WithReconciler(reconciler *chanwatch.Reconciler) *ClientBuilder {
	b.reconciler = reconciler
	return b
}

// WithMetrics sets an optional metrics collector.
func (b *ClientBuilder) WithMetrics(metrics *chanwatch.Metrics) *ClientBuilder {
	b.metrics = metrics
	return b
}

// Build creates and returns a new gateway client with the configured options.
func (b *ClientBuilder) Build() (*Client, error) {
	if err := b.IsValid(); err != nil {
		return nil, err
	}

	return &Client{
		url:            b.url,
		token:          b.token,
		channelID:      b.channelID,
		logger:         b.logger.With(zap.String("source", "gateway")),
		dialTimeout:    b.dialTimeout,
		reconnectDelay: b.reconnectDelay,
		reconciler:     b.reconciler,
		metrics:        b.metrics,
	}, nil
}

// IsValid checks that all required configuration is present.
func (b *ClientBuilder) IsValid() error {
	if b.token == "" {
		return fmt.Errorf("token is required")
	}

	if b.channelID == "" {
		return fmt.Errorf("channel id is required")
	}

	if b.reconciler == nil {
		return fmt.Errorf("reconciler is required")
	}

	return nil
}
