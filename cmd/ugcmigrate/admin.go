package main

import (
	"github.com/spf13/cobra"

	"ugcmigrate/internal/auth"
)

func newAdminCmd(jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the admin token used by protected endpoints",
	}

	cmd.AddCommand(newAdminHashTokenCmd(jsonOutput))
	cmd.AddCommand(newAdminNewTokenCmd(jsonOutput))
	return cmd
}

func newAdminHashTokenCmd(jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the bcrypt hash of a token for admin_token_hash",
		Args:  requireTokenArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashToken(args[0])
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(map[string]string{"admin_token_hash": hash})
			}
			return writePlain("%s\n", hash)
		},
	}
}

func newAdminNewTokenCmd(jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "new-token",
		Short: "Generate a random admin token and its hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.GenerateToken()
			if err != nil {
				return err
			}
			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(map[string]string{"token": token, "admin_token_hash": hash})
			}
			_ = writePlain("token: %s\n", token)
			return writePlain("admin_token_hash: %s\n", hash)
		},
	}
}
