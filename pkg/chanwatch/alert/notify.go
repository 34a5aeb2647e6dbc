// Package alert owns the alert lifecycle: one desktop notification per
// change, then a looping audio alarm until an operator stops it.
package alert

import (
	"context"
	"fmt"
	"os/exec"
)

// Notifier hides the notification and playback side effects so the
// controller can be tested without spawning subprocesses.
type Notifier interface {
	// Notify sends one desktop notification.
	Notify(ctx context.Context, title, body string) error
	// Play plays the alarm sound once, blocking until playback ends.
	Play(ctx context.Context) error
}

// ExecNotifier invokes notify-send and mpv as OS subprocesses.
type ExecNotifier struct {
	soundPath string
}

// NewExecNotifier creates an ExecNotifier playing the sound file at path.
func NewExecNotifier(soundPath string) *ExecNotifier {
	return &ExecNotifier{soundPath: soundPath}
}

// Notify sends a critical desktop notification via notify-send.
func (n *ExecNotifier) Notify(ctx context.Context, title, body string) error {
	cmd := exec.CommandContext(ctx, "notify-send", "-u", "critical", title, body)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("notify-send failed: %w", err)
	}
	return nil
}

// Play plays the sound once via mpv, blocking until playback ends.
func (n *ExecNotifier) Play(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "mpv", "--no-video", "--really-quiet", n.soundPath)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mpv failed: %w", err)
	}
	return nil
}
