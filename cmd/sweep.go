package cmd

import (
	"fmt"
	"time"

	"presence-monitor/internal/alert"
	"presence-monitor/internal/metrics"

	"github.com/spf13/cobra"
)

var sweepAt string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a single sweep and exit",
	Long: `Confirms every pending disconnect whose debounce window has elapsed, sends
the alerts and prints how many were sent. Useful from cron when the service
runs without its own scheduler.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		if sweepAt != "" {
			t, err := time.Parse(time.RFC3339, sweepAt)
			if err != nil {
				return fmt.Errorf("invalid --at: %w", err)
			}
			now = t
		}

		ctx := cmd.Context()
		b, err := openBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		publisher, closePublisher := newPublisher(cfg)
		defer closePublisher()
		dispatcher := alert.New(alert.Config{Publisher: publisher, Timeout: cfg.Notifier.Timeout})

		fired, err := newSweeper(cfg, b, dispatcher, metrics.New()).Sweep(ctx, now, cfg.DebounceWindow)
		fmt.Fprintf(cmd.OutOrStdout(), "alerts sent: %d\n", fired)
		return err
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepAt, "at", "", "evaluate as of this RFC3339 time instead of now")
	rootCmd.AddCommand(sweepCmd)
}
