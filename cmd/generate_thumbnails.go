package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newGenerateThumbnailsCmd creates a new command for generating picture thumbnails
func newGenerateThumbnailsCmd() *cobra.Command {
	var forceRegenerate bool

	cmd := &cobra.Command{
		Use:   "generate-thumbnails [key]",
		Short: "Generate thumbnails for pictures without existing thumbnails",
		Long: `Generate thumbnails for pictures that don't have one yet, or for a single picture
when its key is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				if err := a.svc.GenerateThumbnail(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Printf("Created thumbnail for %s\n", args[0])
				return nil
			}

			fmt.Println("Scanning bucket for pictures without thumbnails...")
			processed, failed, err := a.svc.BulkGenerateThumbnails(cmd.Context(), forceRegenerate,
				func(key string, done, total int) {
					fmt.Printf("  [%d/%d] %s\n", done, total, key)
				})
			if err != nil {
				return err
			}

			fmt.Printf("\nSummary:\n")
			fmt.Printf("  Thumbnails successfully generated: %d\n", processed)
			fmt.Printf("  Failures: %d\n", failed)
			return nil
		},
	}

	// Add command-specific flags
	cmd.Flags().BoolVarP(&forceRegenerate, "force", "f", false, "Force regeneration of all thumbnails, even if they exist")

	return cmd
}

// newClearThumbnailsCmd creates a new command removing stored thumbnails
func newClearThumbnailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-thumbnails [key]",
		Short: "Remove generated thumbnails",
		Long:  `Remove every stored thumbnail, or only the thumbnail of the picture whose key is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				if err := a.svc.ClearThumbnail(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Printf("Cleared thumbnail for %s\n", args[0])
				return nil
			}

			deleted, err := a.svc.BulkClearThumbnails(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Cleared %d thumbnails\n", deleted)
			return nil
		},
	}
}
