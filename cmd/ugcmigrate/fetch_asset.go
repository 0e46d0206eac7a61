package main

import (
	"github.com/spf13/cobra"

	"ugcmigrate/internal/api"
	"ugcmigrate/internal/config"
)

func newFetchAssetCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-asset <url>",
		Short: "Import one remote asset into the staging folder",
		Args:  requireExactlyArgs(1, "url is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ImportAsset(cmd.Context(), api.AssetImportRequest{URL: args[0]})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("%s\n", resp.Path)
			})
		},
	}
}
