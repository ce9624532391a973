package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"media-portfolio/pkg/auth"
	"media-portfolio/pkg/handlers"
	"media-portfolio/pkg/storage"
)

// newServeCmd creates a new command for serving the web application
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long:  `Start the web server to serve the portfolio pages, the admin panel and the JSON API.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cfg.ValidateServer(); err != nil {
				return err
			}
			return serveWebsite(cmd.Context(), a)
		},
	}
}

// serveWebsite runs the web server until the context ends or the process is
// interrupted
func serveWebsite(ctx context.Context, a *app) error {
	authn := auth.NewAuthenticator(a.cfg.AdminPasscode, a.cfg.SessionSecret, a.cfg.SessionTTL)
	h := handlers.New(a.svc, authn, a.logger, a.cfg.ViewsDir)
	if mem, ok := a.store.(*storage.MemoryStore); ok {
		h.ServeObjects(mem)
	}

	srv := &http.Server{
		Addr:              a.cfg.ServerAddress(),
		Handler:           h.Routes(a.cfg.PublicDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.cfg.PrintServerStartMessage()
		a.logger.Infow("Server listening", "addr", srv.Addr, "backend", a.cfg.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Infow("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
