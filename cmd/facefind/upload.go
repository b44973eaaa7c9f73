package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

var uploadCmd = &cobra.Command{
	Use:   "upload EVENT FILE...",
	Short: "Upload photographs into an event corpus",
	Long: `Store each FILE under <event>/known_faces/ in the configured bucket.
Run "facefind build EVENT" afterwards to index the new photos.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx, a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	event, err := domain.NewEvent(args[0])
	if err != nil {
		return err
	}
	files := args[1:]

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Uploading"),
		progressbar.OptionShowCount(),
		progressbar.OptionFullWidth(),
	)

	var failed int
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err == nil {
			_, err = a.Images.Upload(ctx, event, file, data)
		}
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "\n%s: %v\n", file, err)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Println()

	fmt.Printf("Uploaded %d/%d photos to %s\n", len(files)-failed, len(files), event.ID)
	if failed > 0 {
		return fmt.Errorf("%d uploads failed", failed)
	}
	return nil
}
