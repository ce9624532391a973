package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newDeleteCmd creates a command deleting a media item
func newDeleteCmd() *cobra.Command {
	var objectOnly bool

	cmd := &cobra.Command{
		Use:   "delete [key]",
		Short: "Delete a video or picture",
		Long: `Delete the object stored under key together with its metadata entry and thumbnail.
With --object-only the metadata document is left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			key := args[0]
			if objectOnly {
				err = a.svc.DeleteFile(cmd.Context(), key)
			} else {
				err = a.svc.DeleteMedia(cmd.Context(), key)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", key)
			return nil
		},
	}

	cmd.Flags().BoolVar(&objectOnly, "object-only", false, "Delete the object but keep its metadata entry")

	return cmd
}
