package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facefind/internal/domain"
)

var publishCmd = &cobra.Command{
	Use:   "publish EVENT",
	Short: "Upload the local encoding cache of an event to the mirror",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		ec, err := domain.NewEventContext(args[0])
		if err != nil {
			return err
		}
		if err := a.Service.Publish(ctx, ec); err != nil {
			return err
		}
		fmt.Printf("Published encodings of %s\n", ec.Event.ID)
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync EVENT",
	Short: "Replace the local encoding cache of an event with the mirror copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		ec, err := domain.NewEventContext(args[0])
		if err != nil {
			return err
		}
		c, err := a.Service.Sync(ctx, ec)
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d encodings of %s into %s\n", c.Len(), ec.Event.ID, a.Store.Path(ec.Event))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(syncCmd)
}
