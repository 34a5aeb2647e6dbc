package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"chanwatch/pkg/chanwatch/daemon"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the daemon is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := daemon.ReadPID()
		if err != nil {
			fmt.Println("Status: stopped")
			return nil
		}

		if daemon.IsRunning(pid) {
			fmt.Printf("Status: running (pid %d)\n", pid)
		} else {
			fmt.Printf("Status: stopped (stale pid file for %d)\n", pid)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
