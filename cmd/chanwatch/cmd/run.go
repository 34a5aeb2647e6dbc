package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chanwatch/pkg/chanwatch/config"
	"chanwatch/pkg/chanwatch/daemon"
	"chanwatch/pkg/chanwatch/monitor"
	"chanwatch/pkg/chanwatch/otel"
)

var (
	daemonize bool
	logLevel  string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start monitoring (foreground or background)",
	Long: `Start the dual-mode monitor. With --daemon the monitor is started as a
detached background process and this command returns immediately; use
'chanwatch stop' to end it.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&daemonize, "daemon", false, "run as a background daemon")
	runCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if daemonize {
		return spawnDaemon()
	}

	logger, err := setupLogger(logLevel)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer logger.Sync()

	if err := daemon.WritePID(os.Getpid()); err != nil {
		logger.Warn("Failed to write pid file", zap.Error(err))
	}
	defer daemon.RemovePID()

	mon, err := monitor.NewMonitor().
		WithToken(cfg.Token).
		WithChannelID(cfg.ChannelID).
		WithSoundPath(cfg.SoundPath).
		WithAPIBase(cfg.APIBase).
		WithGatewayURL(cfg.GatewayURL).
		WithPollInterval(cfg.PollInterval).
		WithReconnectDelay(cfg.ReconnectDelay).
		WithLogger(logger).
		WithMetricsProvider(otel.NewProvider("chanwatch", version)).
		Build()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting monitor",
		zap.String("channelId", cfg.ChannelID),
		zap.String("soundPath", cfg.SoundPath),
	)

	mon.Run(ctx)

	logger.Info("Monitor stopped")
	return nil
}

// spawnDaemon re-executes this binary in the background with its output
// redirected to a log file next to the executable.
func spawnDaemon() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	logPath := filepath.Join(filepath.Dir(exe), "chanwatch.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, "run", "--log-level", logLevel)
	if configPath != "" {
		child.Args = append(child.Args, "--config", configPath)
	}
	child.Stdout = logFile
	child.Stderr = logFile
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Printf("Started daemon with pid %d (logs: %s)\n", child.Process.Pid, logPath)
	return nil
}
