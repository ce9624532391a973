package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"media-portfolio/pkg/config"
	"media-portfolio/pkg/logging"
	"media-portfolio/pkg/models"
	"media-portfolio/pkg/services"
	"media-portfolio/pkg/storage"
)

// Configuration flags
var (
	bucketName  string
	backendName string
	portNumber  string
	configFile  string
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "media-portfolio",
		Short: "Media Portfolio is a tool for managing and displaying a video and picture portfolio",
		Long: `Media Portfolio is a command line application that manages a portfolio of videos and
pictures kept in object storage, together with their metadata document. It can also
serve the portfolio and its admin panel via a web interface.`,
		SilenceUsage: true,
	}

	// Define persistent flags that will be available for all commands
	rootCmd.PersistentFlags().StringVarP(&bucketName, "bucket", "b", "", "Set the BUCKET_NAME (overrides environment variable)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Set the STORAGE_BACKEND: gcs, s3, minio or memory (overrides environment variable)")
	rootCmd.PersistentFlags().StringVarP(&portNumber, "port", "p", "", "Set the PORT (overrides environment variable)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Read settings from a config file")

	// Add commands to root
	rootCmd.AddCommand(newListMediaCmd("list-videos", models.Videos))
	rootCmd.AddCommand(newListMediaCmd("list-pictures", models.Pictures))
	rootCmd.AddCommand(newShowURLCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newScanMetadataCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateThumbnailsCmd())
	rootCmd.AddCommand(newClearThumbnailsCmd())

	return rootCmd
}

// LoadConfig loads configuration with respect to command line flags
func LoadConfig() (*config.Config, error) {
	// Set environment variables from flags if provided
	if bucketName != "" {
		os.Setenv("BUCKET_NAME", bucketName)
	}

	if backendName != "" {
		os.Setenv("STORAGE_BACKEND", backendName)
	}

	if portNumber != "" {
		os.Setenv("PORT", portNumber)
	}

	// Load configuration from environment variables (potentially set above)
	return config.Load(configFile)
}

// app bundles what every command needs
type app struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
	store  storage.Store
	svc    *services.Service
}

// newApp loads the configuration and opens the configured store
func newApp(ctx context.Context) (*app, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg.IsDevelopment())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	svc := services.NewService(store, logger, services.Options{
		URLTTL:   cfg.URLTTL,
		CacheTTL: cfg.CacheTTL,
	})
	return &app{cfg: cfg, logger: logger, store: store, svc: svc}, nil
}

// Close releases the store and flushes the logger
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warnw("Error closing storage client", "error", err)
	}
	_ = a.logger.Sync()
}
