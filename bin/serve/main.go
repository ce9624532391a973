package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"media-portfolio/pkg/auth"
	"media-portfolio/pkg/config"
	"media-portfolio/pkg/handlers"
	"media-portfolio/pkg/logging"
	"media-portfolio/pkg/services"
	"media-portfolio/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Invalid server configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize services
	store, err := storage.Open(context.Background(), cfg)
	if err != nil {
		logger.Fatalw("Failed to open storage", "error", err)
	}
	defer store.Close()

	svc := services.NewService(store, logger, services.Options{
		URLTTL:   cfg.URLTTL,
		CacheTTL: cfg.CacheTTL,
	})
	authn := auth.NewAuthenticator(cfg.AdminPasscode, cfg.SessionSecret, cfg.SessionTTL)
	h := handlers.New(svc, authn, logger, cfg.ViewsDir)
	if mem, ok := store.(*storage.MemoryStore); ok {
		h.ServeObjects(mem)
	}

	// Start server
	cfg.PrintServerStartMessage()
	if err := http.ListenAndServe(cfg.ServerAddress(), h.Routes(cfg.PublicDir)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorw("Server error", "error", err)
	}
}
