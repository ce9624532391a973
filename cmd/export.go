package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"media-portfolio/pkg/models"
)

// newExportCmd creates a new command for exporting portfolio data
func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [format]",
		Short: "Export portfolio data",
		Long:  `Export the metadata document in the specified format. Currently supported formats: json.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := "json"
			if len(args) > 0 {
				format = args[0]
			}
			if format != "json" {
				return fmt.Errorf("unsupported export format: %s (supported formats: json)", format)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return exportData(a.svc.GetMediaMetadata(cmd.Context()))
		},
	}
}

// exportData prints the metadata document as indented JSON
func exportData(doc *models.MetadataDocument) error {
	doc.Normalize()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling data: %w", err)
	}

	fmt.Println(string(data))
	return nil
}
