package main

import (
	"context"
	"fmt"
	"log/slog"

	"ugcmigrate/internal/blobstore"
	"ugcmigrate/internal/config"
	"ugcmigrate/internal/imgrewrite"
	"ugcmigrate/internal/repository"
)

// openBlobStore builds the blob store selected by storage.backend.
func openBlobStore(ctx context.Context, cfg *config.Config) (blobstore.BlobStore, error) {
	switch cfg.Storage.Backend {
	case "", blobstore.BackendLocalCAS:
		return blobstore.NewLocalCAS(cfg.BlobRoot())
	case blobstore.BackendS3:
		return blobstore.NewS3Bucket(ctx, cfg.Storage.S3Region, cfg.Storage.S3Bucket)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

func openRepository(ctx context.Context, cfg *config.Config) (*repository.Repository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path is required")
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return repository.Open(cfg.DBPath, blobs)
}

func newAssetImporter(cfg *config.Config, repo imgrewrite.AssetRepository, logger *slog.Logger) (*imgrewrite.AssetImporter, error) {
	timeout, err := cfg.FetchTimeout()
	if err != nil {
		return nil, err
	}
	fetcher := imgrewrite.NewHTTPFetcher(timeout, cfg.Fetch.UserAgent)
	return imgrewrite.NewAssetImporter(fetcher, repo, logger), nil
}
