package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ugcmigrate/internal/api"
	"ugcmigrate/internal/config"
)

func newAssetsCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Inspect imported assets and reclaim blob storage",
	}

	cmd.AddCommand(newAssetsListCmd(cfg, jsonOutput))
	cmd.AddCommand(newAssetsCatCmd(cfg))
	cmd.AddCommand(newAssetsGCCmd(cfg, jsonOutput))
	return cmd
}

func newAssetsListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List nodes in the staging folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				nodes, err := client.ListAssets(cmd.Context(), folder)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(nodes)
				}
				return writeNodeList(nodes)
			})
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "folder to list (default: the image staging folder)")
	return cmd
}

func newAssetsCatCmd(cfg *config.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "cat <path>",
		Short: "Write the bytes of a stored file node",
		Args:  requireNodePathArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				var w io.Writer = os.Stdout
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("create output: %w", err)
					}
					defer f.Close()
					w = f
				}
				return client.FetchContent(cmd.Context(), args[0], w)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newAssetsGCCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Garbage-collect blobs no file node references",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.BlobGC(cmd.Context(), apply)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				mode := "dry run"
				if !resp.DryRun {
					mode = "applied"
				}
				return writePlain("%s: candidates=%d deleted=%d failed=%d reclaimed_bytes=%d\n", mode, resp.CandidateCount, resp.DeletedCount, resp.FailedCount, resp.ReclaimedBytes)
			})
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "delete unreferenced blobs (default is a dry run)")
	return cmd
}
