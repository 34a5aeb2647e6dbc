package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chanwatch/pkg/chanwatch"
)

type testAlerter struct {
	count int64
	last  atomic.Value
}

func (a *testAlerter) Trigger(name string) {
	atomic.AddInt64(&a.count, 1)
	a.last.Store(name)
}

func (a *testAlerter) triggers() int64 {
	return atomic.LoadInt64(&a.count)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientBuilder(t *testing.T) {
	reconciler := chanwatch.NewReconciler(chanwatch.NewState(), &testAlerter{}, nil, nil)

	t.Run("successful build with all parameters", func(t *testing.T) {
		client, err := NewClient().
			WithURL("ws://localhost:8080/").
			WithToken("token").
			WithChannelID("123").
			WithReconnectDelay(time.Second).
			WithReconciler(reconciler).
			Build()

		require.NoError(t, err)
		assert.NotNil(t, client)
		assert.Equal(t, "ws://localhost:8080/", client.url)
		assert.Equal(t, time.Second, client.reconnectDelay)
	})

	t.Run("defaults", func(t *testing.T) {
		builder := NewClient()
		assert.Equal(t, DefaultGatewayURL, builder.url)
		assert.Equal(t, DefaultReconnectDelay, builder.reconnectDelay)
		assert.NotNil(t, builder.logger)
	})

	t.Run("build fails with missing token", func(t *testing.T) {
		_, err := NewClient().WithChannelID("123").WithReconciler(reconciler).Build()

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "token is required")
	})

	t.Run("build fails with missing channel id", func(t *testing.T) {
		_, err := NewClient().WithToken("token").WithReconciler(reconciler).Build()

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "channel id is required")
	})

	t.Run("build fails with missing reconciler", func(t *testing.T) {
		_, err := NewClient().WithToken("token").WithChannelID("123").Build()

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "reconciler is required")
	})
}

func TestClientSession(t *testing.T) {
	t.Run("handshake then dispatch updates state and alerts once", func(t *testing.T) {
		identifyCh := make(chan []byte, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := websocket.Accept(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close(websocket.StatusNormalClosure, "")
			ctx := r.Context()

			if err := conn.Write(ctx, websocket.MessageText, []byte(`{"op":10,"d":{"heartbeat_interval":50000}}`)); err != nil {
				return
			}

			_, identify, err := conn.Read(ctx)
			if err != nil {
				return
			}
			identifyCh <- identify

			// An update for a different channel must be ignored.
			conn.Write(ctx, websocket.MessageText, []byte(`{"op":0,"t":"CHANNEL_UPDATE","d":{"id":"999","name":"elsewhere"}}`))
			conn.Write(ctx, websocket.MessageText, []byte(`{"op":11}`))
			conn.Write(ctx, websocket.MessageText, []byte(`{"op":0,"t":"CHANNEL_UPDATE","d":{"id":"123","name":"general-chat"}}`))

			for {
				if _, _, err := conn.Read(ctx); err != nil {
					return
				}
			}
		}))
		defer srv.Close()

		alerter := &testAlerter{}
		state := chanwatch.NewState()
		client, err := NewClient().
			WithURL(wsURL(srv)).
			WithToken("test-token").
			WithChannelID("123").
			WithReconnectDelay(10 * time.Millisecond).
			WithReconciler(chanwatch.NewReconciler(state, alerter, nil, nil)).
			Build()
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			client.Run(ctx)
			close(done)
		}()

		select {
		case identify := <-identifyCh:
			var msg Message
			require.NoError(t, json.Unmarshal(identify, &msg))
			assert.Equal(t, OpIdentify, msg.Op)
			var payload IdentifyData
			require.NoError(t, json.Unmarshal(msg.Data, &payload))
			assert.Equal(t, "test-token", payload.Token)
		case <-time.After(2 * time.Second):
			t.Fatal("client never sent identify")
		}

		require.Eventually(t, func() bool {
			return state.Load().Equal(chanwatch.SomeName("general-chat"))
		}, 2*time.Second, time.Millisecond)
		assert.Equal(t, int64(1), alerter.triggers())

		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("client did not stop on context cancellation")
		}
	})

	t.Run("wrong greeting op drops the connection and retries", func(t *testing.T) {
		var connections int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := websocket.Accept(w, r, nil)
			if err != nil {
				return
			}
			ctx := r.Context()

			if atomic.AddInt64(&connections, 1) == 1 {
				conn.Write(ctx, websocket.MessageText, []byte(`{"op":5}`))
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}

			defer conn.Close(websocket.StatusNormalClosure, "")
			if err := conn.Write(ctx, websocket.MessageText, []byte(`{"op":10,"d":{"heartbeat_interval":50000}}`)); err != nil {
				return
			}
			if _, _, err := conn.Read(ctx); err != nil { // identify
				return
			}
			conn.Write(ctx, websocket.MessageText, []byte(`{"op":0,"t":"CHANNEL_UPDATE","d":{"id":"123","name":"second-try"}}`))
			for {
				if _, _, err := conn.Read(ctx); err != nil {
					return
				}
			}
		}))
		defer srv.Close()

		alerter := &testAlerter{}
		state := chanwatch.NewState()
		client, err := NewClient().
			WithURL(wsURL(srv)).
			WithToken("test-token").
			WithChannelID("123").
			WithReconnectDelay(10 * time.Millisecond).
			WithReconciler(chanwatch.NewReconciler(state, alerter, nil, nil)).
			Build()
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go client.Run(ctx)

		require.Eventually(t, func() bool {
			return state.Load().Equal(chanwatch.SomeName("second-try"))
		}, 2*time.Second, time.Millisecond)
		assert.GreaterOrEqual(t, atomic.LoadInt64(&connections), int64(2))
	})

	t.Run("heartbeats are sent on the announced interval", func(t *testing.T) {
		heartbeats := make(chan struct{}, 4)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := websocket.Accept(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close(websocket.StatusNormalClosure, "")
			ctx := r.Context()

			if err := conn.Write(ctx, websocket.MessageText, []byte(`{"op":10,"d":{"heartbeat_interval":20}}`)); err != nil {
				return
			}
			if _, _, err := conn.Read(ctx); err != nil { // identify
				return
			}

			for {
				_, data, err := conn.Read(ctx)
				if err != nil {
					return
				}
				var msg Message
				if json.Unmarshal(data, &msg) == nil && msg.Op == OpHeartbeat {
					conn.Write(ctx, websocket.MessageText, []byte(`{"op":11}`))
					select {
					case heartbeats <- struct{}{}:
					default:
					}
				}
			}
		}))
		defer srv.Close()

		client, err := NewClient().
			WithURL(wsURL(srv)).
			WithToken("test-token").
			WithChannelID("123").
			WithReconnectDelay(10 * time.Millisecond).
			WithReconciler(chanwatch.NewReconciler(chanwatch.NewState(), &testAlerter{}, nil, nil)).
			Build()
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go client.Run(ctx)

		for i := 0; i < 2; i++ {
			select {
			case <-heartbeats:
			case <-time.After(2 * time.Second):
				t.Fatal("no heartbeat received")
			}
		}
	})
}
