package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"chanwatch/pkg/chanwatch/alert"
	"chanwatch/pkg/chanwatch/config"
)

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test notification (play sound + show popup once)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		notifier := alert.NewExecNotifier(cfg.SoundPath)

		fmt.Println("Sending test notification...")
		if err := notifier.Notify(cmd.Context(), "CHANNEL OPEN", "Channel is now: test-channel"); err != nil {
			return err
		}

		fmt.Println("Playing test sound...")
		if err := notifier.Play(cmd.Context()); err != nil {
			return err
		}

		fmt.Println("Test complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}
