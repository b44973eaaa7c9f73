package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

var buildCmd = &cobra.Command{
	Use:   "build EVENT...",
	Short: "Extract face encodings for new photos of one or more events",
	Long: `Scan <event>/known_faces/, extract encodings for every photo not yet in
the event's index, save the local cache and publish it to the mirror.

Re-running on an unchanged corpus adds nothing. Photos that cannot be fetched
or decoded are reported and skipped.

Examples:
  facefind build gala-2024
  facefind build gala-2024 wedding --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().Bool("json", false, "Output reports as JSON instead of a progress bar")
}

func runBuild(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx, a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	var reports []*domain.BuildReport
	for _, id := range args {
		ec, err := domain.NewEventContext(id)
		if err != nil {
			return err
		}

		var (
			mu         sync.Mutex
			bar        *progressbar.ProgressBar
			onProgress func(done, total int)
		)
		if !jsonOutput {
			// called from the builder's workers
			onProgress = func(done, total int) {
				mu.Lock()
				defer mu.Unlock()
				if bar == nil {
					bar = progressbar.NewOptions(total,
						progressbar.OptionSetDescription(fmt.Sprintf("Encoding %s", id)),
						progressbar.OptionShowCount(),
						progressbar.OptionShowIts(),
						progressbar.OptionSetItsString("photos"),
						progressbar.OptionShowElapsedTimeOnFinish(),
						progressbar.OptionSetPredictTime(true),
						progressbar.OptionFullWidth(),
					)
				}
				if done > int(bar.State().CurrentNum) {
					_ = bar.Set(done)
				}
			}
		}

		report, err := a.Service.BuildCorpus(ctx, ec, onProgress)
		if bar != nil {
			_ = bar.Finish()
			fmt.Println()
		}
		if err != nil {
			return fmt.Errorf("event %s: %w", id, err)
		}
		reports = append(reports, report)

		if !jsonOutput {
			printReport(report)
		}
	}

	if jsonOutput {
		return outputJSON(reports)
	}
	return nil
}

func printReport(r *domain.BuildReport) {
	fmt.Printf("Event %s: %d photos scanned, %d processed, %d encodings added (%d total) in %s\n",
		r.Event, r.Scanned, r.Processed, r.Added, r.Total, r.Duration.Round(time.Millisecond))

	for _, s := range r.Skipped {
		fmt.Printf("  skipped %s: %s\n", s.PublicID, s.Reason)
	}
	if len(r.NoFace) > 0 {
		fmt.Printf("  %d photos without a detectable face\n", len(r.NoFace))
	}

	switch {
	case !r.Saved:
		fmt.Println("  nothing new, index unchanged")
	case r.Published:
		fmt.Println("  index saved and published")
	default:
		fmt.Printf("  index saved locally, publish failed: %s\n", r.PublishError)
		fmt.Printf("  retry with: facefind publish %s\n", r.Event)
	}
}
