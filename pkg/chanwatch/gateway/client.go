package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"chanwatch/pkg/chanwatch"
)

// TransportError reports a connect, send, or receive failure on the
// gateway connection. Like ProtocolError it only ever causes a reconnect.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client maintains a persistent gateway session. Each session walks the
// same sequence: dial, await Hello, send Identify, then run heartbeat and
// event intake concurrently until the connection dies. Any failure at any
// stage drops the session; after a fixed delay a fresh session starts.
// There is no terminal state short of context cancellation.
type Client struct {
	url            string
	token          string
	channelID      string
	logger         *zap.Logger
	dialTimeout    time.Duration
	reconnectDelay time.Duration
	reconciler     *chanwatch.Reconciler
	metrics        *chanwatch.Metrics
}

// Run connects and reconnects until ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	for {
		if err := c.session(ctx); err != nil {
			c.logger.Warn("Gateway session ended", zap.Error(err))
		}

		if ctx.Err() != nil {
			return
		}

		c.logger.Info("Reconnecting to gateway", zap.Duration("delay", c.reconnectDelay))
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectDelay):
		}
	}
}

// session runs one connection from dial to disconnect. The returned error
// explains why the session ended; it is logged by Run and never fatal.
func (c *Client) session(ctx context.Context) error {
	c.logger.Info("Connecting to gateway", zap.String("url", c.url))

	dialCtx, dialCancel := context.WithTimeout(ctx, c.dialTimeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		HTTPHeader: map[string][]string{
			"User-Agent": {chanwatch.UserAgent},
		},
	})
	if err != nil {
		return &TransportError{Err: fmt.Errorf("failed to connect: %w", err)}
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")

	// Await Hello. The first frame must be op 10 carrying the heartbeat
	// interval; anything else drops the connection.
	_, data, err := conn.Read(ctx)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("connection lost before hello: %w", err)}
	}

	msg, err := DecodeMessage(data)
	if err != nil {
		return err
	}

	heartbeatMs, err := HelloInterval(msg)
	if err != nil {
		return err
	}
	c.logger.Info("Received Hello", zap.Int64("heartbeatIntervalMs", heartbeatMs))

	// Authenticate.
	identify, err := EncodeIdentify(c.token)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, identify); err != nil {
		return &TransportError{Err: fmt.Errorf("failed to send identify: %w", err)}
	}
	c.logger.Info("Sent Identify")

	c.metrics.RecordGatewayConnect(ctx)
	defer c.metrics.RecordGatewayDisconnect(ctx)

	// Active state. The heartbeat timer and the write loop run on their own
	// goroutines; sessCtx ties their lifetime to this session so no timer
	// outlives the connection.
	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	writeCh := make(chan []byte, 8)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop(sessCtx, cancel, conn, writeCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.heartbeatLoop(sessCtx, writeCh, time.Duration(heartbeatMs)*time.Millisecond)
	}()

	err = c.readLoop(sessCtx, conn)

	cancel()
	wg.Wait()
	return err
}

// readLoop consumes frames until the connection ends.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TransportError{Err: fmt.Errorf("read failed: %w", err)}
		}

		c.handleFrame(ctx, data)
	}
}

// writeLoop drains writeCh onto the connection. A failed write cancels the
// session so the read loop unblocks.
func (c *Client) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, writeCh <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-writeCh:
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				if ctx.Err() == nil {
					c.logger.Warn("Failed to write frame", zap.Error(err))
					cancel()
				}
				return
			}
		}
	}
}

// heartbeatLoop enqueues a heartbeat frame on every tick until the session
// ends.
func (c *Client) heartbeatLoop(ctx context.Context, writeCh chan<- []byte, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := EncodeHeartbeat()
			if err != nil {
				c.logger.Warn("Failed to encode heartbeat", zap.Error(err))
				continue
			}
			select {
			case writeCh <- frame:
				c.metrics.RecordHeartbeat(ctx)
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleFrame dispatches one inbound frame. Malformed frames are logged
// and skipped; they don't end the session once it is active.
func (c *Client) handleFrame(ctx context.Context, data []byte) {
	msg, err := DecodeMessage(data)
	if err != nil {
		c.logger.Warn("Dropping malformed frame", zap.Error(err))
		return
	}

	switch msg.Op {
	case OpDispatch:
		c.handleDispatch(ctx, msg)
	case OpHeartbeatAck:
		// Nothing to do; ack timeliness is deliberately not tracked.
		c.logger.Debug("Heartbeat acknowledged")
	default:
		c.logger.Debug("Ignoring frame", zap.Int("op", msg.Op))
	}
}

// handleDispatch reconciles CHANNEL_UPDATE events for the watched channel.
func (c *Client) handleDispatch(ctx context.Context, msg Message) {
	if msg.Type != EventChannelUpdate || msg.Data == nil {
		return
	}

	var channel chanwatch.Channel
	if err := json.Unmarshal(msg.Data, &channel); err != nil {
		c.logger.Warn("Failed to decode channel update", zap.Error(err))
		return
	}

	if channel.ID != c.channelID {
		return
	}

	c.metrics.RecordGatewayEvent(ctx)
	c.reconciler.Observe(ctx, "gateway", channel.ChannelName())
}
