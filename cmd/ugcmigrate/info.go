package main

import (
	"github.com/spf13/cobra"

	"ugcmigrate/internal/api"
	"ugcmigrate/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show repository and storage info",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}
				if resp.DBPath == "" {
					resp.DBPath = cfg.DBPath
				}

				if *jsonOutput {
					return writeJSON(resp)
				}

				_ = writePlain("db_path: %s\n", resp.DBPath)
				_ = writePlain("storage_backend: %s\n", resp.StorageBackend)
				_ = writePlain("schema_version: %d\n", resp.SchemaVersion)
				_ = writePlain("folders: %d\n", resp.FolderCount)
				_ = writePlain("files: %d\n", resp.FileCount)
				_ = writePlain("blobs: %d (%d bytes)\n", resp.BlobCount, resp.BlobBytes)
				_ = writePlain("scores: %d\n", resp.ScoreCount)
				return nil
			})
		},
	}
	return cmd
}
