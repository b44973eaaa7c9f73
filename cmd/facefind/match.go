package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
	"github.com/saturnino-fabrica-de-software/facefind/internal/service"
)

var matchCmd = &cobra.Command{
	Use:   "match EVENT SELFIE",
	Short: "List the event photos that contain the person in a selfie",
	Long: `Extract the first face of SELFIE and print the link of every event photo
holding a face within MATCH_TOLERANCE of it, in index order.

Examples:
  facefind match gala-2024 me.jpg
  facefind match gala-2024 me.jpg --download ./mine
  facefind match gala-2024 me.jpg --json`,
	Args: cobra.ExactArgs(2),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().Bool("json", false, "Output matches as JSON")
	matchCmd.Flags().String("download", "", "Directory to download matching photos into")
}

type matchOutput struct {
	Event   string         `json:"event"`
	Matches []domain.Match `json:"matches"`
	Links   []string       `json:"links"`
}

func runMatch(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	downloadDir := mustGetString(cmd, "download")

	selfie, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read selfie: %w", err)
	}

	ctx, a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ec, err := domain.NewEventContext(args[0])
	if err != nil {
		return err
	}

	matches, err := a.Service.MatchSelfie(ctx, ec, selfie)
	if err != nil {
		return err
	}
	links := service.Links(matches)

	if downloadDir != "" {
		if err := os.MkdirAll(downloadDir, 0o755); err != nil {
			return fmt.Errorf("create download dir: %w", err)
		}
		for _, m := range matches {
			data, err := a.Images.Fetch(ctx, domain.ImageRef{PublicID: m.PublicID, URL: m.URL})
			if err != nil {
				fmt.Fprintf(os.Stderr, "download %s: %v\n", m.PublicID, err)
				continue
			}
			dest := filepath.Join(downloadDir, path.Base(m.PublicID))
			if err := os.WriteFile(dest, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", dest, err)
			}
		}
	}

	if jsonOutput {
		if links == nil {
			links = []string{}
		}
		if matches == nil {
			matches = []domain.Match{}
		}
		return outputJSON(matchOutput{Event: ec.Event.ID, Matches: matches, Links: links})
	}

	if len(links) == 0 {
		fmt.Println("No matching photos found")
		return nil
	}
	for _, link := range links {
		fmt.Println(link)
	}
	return nil
}
