package alert

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNotifier records notifications and playbacks without side effects.
type fakeNotifier struct {
	notifies  int64
	plays     int64
	lastTitle atomic.Value
	lastBody  atomic.Value
}

func (f *fakeNotifier) Notify(ctx context.Context, title, body string) error {
	atomic.AddInt64(&f.notifies, 1)
	f.lastTitle.Store(title)
	f.lastBody.Store(body)
	return nil
}

func (f *fakeNotifier) Play(ctx context.Context) error {
	atomic.AddInt64(&f.plays, 1)
	return nil
}

func newTestController(t *testing.T, notifier Notifier) *Controller {
	t.Helper()
	controller, err := NewController().
		WithNotifier(notifier).
		WithReplayDelay(20 * time.Millisecond).
		WithCheckInterval(time.Millisecond).
		Build()
	require.NoError(t, err)
	return controller
}

func TestControllerBuilder(t *testing.T) {
	t.Run("build fails without a notifier", func(t *testing.T) {
		_, err := NewController().Build()

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "notifier is required")
	})

	t.Run("defaults", func(t *testing.T) {
		builder := NewController()
		assert.Equal(t, DefaultReplayDelay, builder.replayDelay)
		assert.Equal(t, DefaultCheckInterval, builder.checkInterval)
		assert.NotNil(t, builder.logger)
	})
}

func TestController(t *testing.T) {
	t.Run("trigger notifies once and loops playback until stopped", func(t *testing.T) {
		notifier := &fakeNotifier{}
		controller := newTestController(t, notifier)

		controller.Trigger("general-chat")
		assert.True(t, controller.IsRunning())

		require.Eventually(t, func() bool {
			return atomic.LoadInt64(&notifier.plays) >= 2
		}, time.Second, time.Millisecond)

		assert.Equal(t, int64(1), atomic.LoadInt64(&notifier.notifies))
		assert.Equal(t, "CHANNEL OPEN", notifier.lastTitle.Load())
		assert.Equal(t, "Channel is now: general-chat", notifier.lastBody.Load())

		controller.Stop()
		require.Eventually(t, func() bool {
			return !controller.IsRunning()
		}, time.Second, time.Millisecond)
	})

	t.Run("stop takes effect within a check interval", func(t *testing.T) {
		notifier := &fakeNotifier{}
		controller, err := NewController().
			WithNotifier(notifier).
			WithReplayDelay(3 * time.Second).
			WithCheckInterval(time.Millisecond).
			Build()
		require.NoError(t, err)

		controller.Trigger("general-chat")
		require.Eventually(t, func() bool {
			return atomic.LoadInt64(&notifier.plays) >= 1
		}, time.Second, time.Millisecond)

		// The loop is now inside the 3s replay pause. Stop must take
		// effect within the check granularity, not after the full pause:
		// no further playback may start.
		controller.Stop()
		plays := atomic.LoadInt64(&notifier.plays)
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, plays, atomic.LoadInt64(&notifier.plays))
		assert.False(t, controller.IsRunning())
	})

	t.Run("trigger while running is a no-op", func(t *testing.T) {
		notifier := &fakeNotifier{}
		controller := newTestController(t, notifier)
		defer controller.Stop()

		controller.Trigger("first")
		controller.Trigger("second")
		controller.Trigger("third")

		require.Eventually(t, func() bool {
			return atomic.LoadInt64(&notifier.plays) >= 1
		}, time.Second, time.Millisecond)
		assert.Equal(t, int64(1), atomic.LoadInt64(&notifier.notifies))
		assert.Equal(t, "Channel is now: first", notifier.lastBody.Load())
	})

	t.Run("can be retriggered after stop", func(t *testing.T) {
		notifier := &fakeNotifier{}
		controller := newTestController(t, notifier)

		controller.Trigger("first")
		controller.Stop()
		require.Eventually(t, func() bool {
			return !controller.IsRunning()
		}, time.Second, time.Millisecond)

		controller.Trigger("second")
		defer controller.Stop()
		assert.True(t, controller.IsRunning())

		require.Eventually(t, func() bool {
			return atomic.LoadInt64(&notifier.notifies) == 2
		}, time.Second, time.Millisecond)
	})
}
