package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ugcmigrate/internal/api"
	"ugcmigrate/internal/config"
)

func newScoresCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Import and inspect community scores",
	}

	cmd.AddCommand(newScoresImportCmd(cfg, jsonOutput))
	cmd.AddCommand(newScoresListCmd(cfg, jsonOutput))
	return cmd
}

func newScoresImportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		file       string
		targetPath string
		rulePath   string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upload a JSON object of user id to score",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ImportScores(cmd.Context(), filepath.Base(file), f, targetPath, rulePath)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("applied %d scores to %s under %s\n", resp.Applied, resp.TargetPath, resp.RulePath)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON score file (required)")
	cmd.Flags().StringVar(&targetPath, "path", "", "communities page path the scores apply to")
	cmd.Flags().StringVar(&rulePath, "rule", "", "scoring rule path")
	return cmd
}

func newScoresListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				scores, err := client.ListScores(cmd.Context(), userID)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(scores)
				}
				return writeScoreList(scores)
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "only list scores for this user id")
	return cmd
}
