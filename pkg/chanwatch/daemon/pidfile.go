// Package daemon manages the PID file used by the start/stop/status
// commands to track a background monitor process.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// PIDFileName is the PID file kept next to the executable.
const PIDFileName = "chanwatch.pid"

// PIDFilePath returns the path to the PID file, next to the executable
// when it can be located and in the current directory otherwise.
func PIDFilePath() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exe), PIDFileName)
	}
	return PIDFileName
}

// WritePID records pid in the PID file.
func WritePID(pid int) error {
	if err := os.WriteFile(PIDFilePath(), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// ReadPID returns the recorded pid, or an error if no valid PID file
// exists.
func ReadPID() (int, error) {
	data, err := os.ReadFile(PIDFilePath())
	if err != nil {
		return 0, fmt.Errorf("failed to read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid pid file contents: %w", err)
	}
	return pid, nil
}

// RemovePID deletes the PID file if present.
func RemovePID() error {
	err := os.Remove(PIDFilePath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove pid file: %w", err)
	}
	return nil
}

// IsRunning reports whether a process with the given pid exists.
func IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	// Signal 0 performs the existence/permission check without delivering
	// anything.
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Stop sends SIGTERM to the recorded process and removes the PID file.
// Returns the stopped pid.
func Stop() (int, error) {
	pid, err := ReadPID()
	if err != nil {
		return 0, err
	}

	if !IsRunning(pid) {
		RemovePID()
		return 0, fmt.Errorf("process %d is not running", pid)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, err
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return 0, fmt.Errorf("failed to signal process %d: %w", pid, err)
	}

	if err := RemovePID(); err != nil {
		return pid, err
	}
	return pid, nil
}
