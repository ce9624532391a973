package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"media-portfolio/pkg/models"
	"media-portfolio/pkg/services"
)

// newListMediaCmd creates a command listing one collection
func newListMediaCmd(use string, c models.Collection) *cobra.Command {
	var withURLs bool

	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("List all %s", c),
		Long:  fmt.Sprintf(`List all %s with their titles, sizes and content types as shown on the portfolio.`, c),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var items []models.MediaItem
			if withURLs {
				items, err = a.svc.ListWithURLs(cmd.Context(), c)
			} else {
				items, err = a.svc.List(cmd.Context(), c)
			}
			if err != nil {
				return err
			}
			printItems(c, items)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&withURLs, "urls", "u", false, "Include signed access URLs")

	return cmd
}

// printItems displays the items of a collection
func printItems(c models.Collection, items []models.MediaItem) {
	header := fmt.Sprintf("Portfolio %s:", c)
	fmt.Println(header)
	for range header {
		fmt.Print("=")
	}
	fmt.Println()

	for i, item := range items {
		fmt.Printf("%d. %s\n", i+1, item.Title)
		fmt.Printf("   Key: %s\n", item.Key)
		fmt.Printf("   Size: %s (%s)\n", services.FormatFileSize(item.Size), item.ContentType)
		if item.Description != "" {
			fmt.Printf("   Description: %s\n", item.Description)
		}
		if item.URL != "" {
			fmt.Printf("   URL: %s\n", item.URL)
		}
		if item.ThumbnailURL != "" {
			fmt.Printf("   Thumbnail: %s\n", item.ThumbnailURL)
		}
		fmt.Println()
	}

	fmt.Printf("Total: %d %s\n", len(items), c)
}
