package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"media-portfolio/pkg/models"
)

// newScanMetadataCmd creates a command rebuilding the metadata document
func newScanMetadataCmd() *cobra.Command {
	var merge bool

	cmd := &cobra.Command{
		Use:   "scan-metadata",
		Short: "Rebuild the metadata document from the bucket contents",
		Long: `Scan the videos and pictures in the bucket and write a fresh metadata document.
This replaces hand-entered titles and descriptions unless --merge is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var doc *models.MetadataDocument
			if merge {
				doc, err = a.svc.ScanAndMergeMetadata(cmd.Context())
			} else {
				doc, err = a.svc.ScanAndCreateMetadata(cmd.Context())
			}
			if err != nil {
				return err
			}

			fmt.Printf("Metadata document written\n")
			fmt.Printf("  Videos: %d\n", len(doc.Videos))
			fmt.Printf("  Pictures: %d\n", len(doc.Pictures))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&merge, "merge", "m", false, "Keep existing titles and descriptions")

	return cmd
}
