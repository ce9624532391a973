package storage

import (
	"context"
	"fmt"

	"media-portfolio/pkg/config"
)

// Open returns the store selected by cfg.Backend
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Backend {
	case config.BackendGCS:
		return NewGCSStore(ctx, cfg.BucketName, cfg.CredentialsFile)
	case config.BackendS3:
		return NewS3Store(ctx, cfg.Region, cfg.BucketName, cfg.Endpoint)
	case config.BackendMinio:
		return NewMinioStore(ctx, cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.BucketName, cfg.UseSSL)
	case config.BackendMemory:
		return NewMemoryStore(fmt.Sprintf("http://localhost:%s/memory", cfg.Port)), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
	}
}
