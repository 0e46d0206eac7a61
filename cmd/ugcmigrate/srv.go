package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"ugcmigrate/internal/config"
	"ugcmigrate/internal/server"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the ugcmigrate API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening repository", "path", cfg.DBPath, "storage", cfg.Storage.Backend)
			repo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			importer, err := newAssetImporter(cfg, repo, slog.Default().With("component", "importer"))
			if err != nil {
				return err
			}
			if cfg.AdminTokenHash == "" {
				logger.Warn("admin_token_hash is not set; admin endpoints are disabled")
			}

			srv := server.New(addr, repo, importer, logger, server.Options{
				DBPath:             cfg.DBPath,
				AdminTokenHash:     cfg.AdminTokenHash,
				GCBatchSize:        cfg.GCBatchSize,
				MaxUploadBytes:     cfg.Scores.MaxUploadBytes,
				MultipartMaxMemory: cfg.Scores.MultipartMaxMemory,
			})
			return srv.ListenAndServe(cmd.Context())
		},
	}
}
