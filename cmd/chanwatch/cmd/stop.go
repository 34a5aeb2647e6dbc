package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"chanwatch/pkg/chanwatch/daemon"
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := daemon.Stop()
		if err != nil {
			return err
		}
		fmt.Printf("Stopped daemon (pid %d)\n", pid)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
