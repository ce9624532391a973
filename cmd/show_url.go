package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newShowURLCmd creates a command printing a temporary access URL
func newShowURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-url [key]",
		Short: "Print a temporary access URL for a stored object",
		Long:  `Print a signed URL for the object stored under key. The URL expires after URL_TTL.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			url, err := a.svc.GetFileURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(url)
			return nil
		},
	}
}
