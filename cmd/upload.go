package cmd

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"media-portfolio/pkg/models"
	"media-portfolio/pkg/services"
)

// newUploadCmd creates a command uploading a local file into a collection
func newUploadCmd() *cobra.Command {
	var (
		title       string
		description string
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "upload [videos|pictures] [file]",
		Short: "Upload a video or picture",
		Long: `Upload a local file into the videos or pictures collection and record it in the
metadata document. The content type is derived from the file extension unless given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := models.Collection(args[0])
			if !c.Valid() {
				return fmt.Errorf("%w: %q", services.ErrInvalidCollection, args[0])
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}
			name := filepath.Base(args[1])
			if contentType == "" {
				contentType = mime.TypeByExtension(filepath.Ext(name))
			}
			if title == "" {
				title = services.GenerateTitle(name)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			progress := newProgressPrinter(name)
			result, err := a.svc.Upload(cmd.Context(), c, services.UploadFile{
				Name:        name,
				ContentType: contentType,
				Size:        info.Size(),
				Body:        f,
			}, title, description, progress.report)
			progress.done()
			if err != nil {
				return err
			}

			fmt.Printf("Uploaded %s\n", result.Key)
			fmt.Printf("  Title: %s\n", result.Entry.Title)
			fmt.Printf("  Size: %s\n", services.FormatFileSize(result.Entry.Size))
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Title shown on the portfolio (derived from the filename when empty)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description shown on the portfolio")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type of the file")

	return cmd
}

// progressPrinter prints upload progress on a single line
type progressPrinter struct {
	fileName   string
	lastUpdate time.Time
	printed    bool
}

func newProgressPrinter(fileName string) *progressPrinter {
	return &progressPrinter{fileName: fileName}
}

func (p *progressPrinter) report(transferred, total int64) {
	// Don't report progress too frequently - update at most every 500ms
	now := time.Now()
	if transferred < total && now.Sub(p.lastUpdate) < 500*time.Millisecond {
		return
	}
	p.lastUpdate = now
	p.printed = true

	if total <= 0 {
		fmt.Printf("\r    Uploading %s: %s...", p.fileName, services.FormatFileSize(transferred))
		return
	}
	percent := float64(transferred) / float64(total) * 100
	fmt.Printf("\r    Uploading %s: %.1f%% (%s/%s)...", p.fileName, percent,
		services.FormatFileSize(transferred), services.FormatFileSize(total))
}

func (p *progressPrinter) done() {
	if p.printed {
		fmt.Println()
	}
}
