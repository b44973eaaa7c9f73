package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facefind/internal/service"
)

var watchCmd = &cobra.Command{
	Use:   "watch [EVENT...]",
	Short: "Rebuild events periodically as new photos arrive",
	Long: `Run the corpus builder for every event on each tick until interrupted.

Events come from the arguments, then EVENTS, then the events already published
on the mirror.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("interval", 0, "Refresh interval (default REFRESH_INTERVAL)")
	watchCmd.Flags().Bool("once", false, "Refresh a single time and exit")
}

func runWatch(cmd *cobra.Command, args []string) error {
	interval, err := cmd.Flags().GetDuration("interval")
	if err != nil {
		return err
	}
	once := mustGetBool(cmd, "once")

	ctx, a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	if interval <= 0 {
		interval = a.Config.RefreshInterval
	}

	refresher := service.NewRefresher(a.Service, a.EventSource(args), interval, a.Logger)
	if once {
		for _, r := range refresher.RunOnce(ctx) {
			printReport(r)
		}
		return nil
	}

	start := time.Now()
	refresher.Run(ctx)
	a.Logger.Info("watch stopped", "uptime", time.Since(start).Round(time.Second))
	return nil
}
