package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ugcmigrate/internal/api"
	"ugcmigrate/internal/config"
)

func newRewriteCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		input   string
		include string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "rewrite",
		Short: "Import images referenced by rich text and point the text at the stored copies",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Rewrite(cmd.Context(), api.RewriteRequest{Text: text, Include: include})
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(resp)
				}
				if output == "" || output == "-" {
					return writePlain("%s", resp.Text)
				}
				if err := os.WriteFile(output, []byte(resp.Text), 0o644); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				return writePlain("rewrote %d image references (%d skipped) into %s\n", len(resp.Replacements), resp.Skipped, output)
			})
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "file with the rich text to rewrite, or - for stdin (required)")
	cmd.Flags().StringVar(&include, "include", "", "only import image URLs containing this substring")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write rewritten text to this file instead of stdout")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func readInput(stdin io.Reader, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("--input is required")
	}
	var (
		data []byte
		err  error
	)
	if input == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}
