package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ugcmigrate/internal/auth"
	"ugcmigrate/internal/blobstore"
	"ugcmigrate/internal/config"
)

func newConfigCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get, set or list configuration",
	}

	cmd.AddCommand(newConfigGetCmd(cfg))
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigListCmd(cfg, jsonOutput))
	return cmd
}

func newConfigGetCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !config.IsAllowedKey(key) {
				return fmt.Errorf("unknown key: %s (allowed: %v)", key, config.AllowedKeys())
			}
			value, err := cfg.Get(key)
			if err != nil {
				return err
			}
			return writePlain("%s\n", value)
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := checkConfigValue(key, value); err != nil {
				return err
			}

			path, err := config.ProjectPath()
			if global {
				path, err = config.GlobalPath()
			}
			if err != nil {
				return err
			}

			if err := config.SetKey(path, key, value); err != nil {
				return err
			}
			return writePlain("%s written to %s\n", key, path)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "write to global config (~/.ugcmigrate.toml)")
	return cmd
}

func newConfigListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show every config key with its effective value",
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(map[string]string, len(config.AllowedKeys()))
			for _, key := range config.AllowedKeys() {
				value, err := cfg.Get(key)
				if err != nil {
					return err
				}
				values[key] = value
			}

			if *jsonOutput {
				return writeJSON(values)
			}
			for _, key := range config.AllowedKeys() {
				if err := writePlain("%s = %s\n", key, values[key]); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// checkConfigValue rejects values that would only fail once the server
// starts. Other keys are type-checked by config.SetKey.
func checkConfigValue(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "admin_token_hash":
		if !auth.IsTokenHash(value) {
			return fmt.Errorf("admin_token_hash must be a bcrypt hash; generate one with: ugcmigrate admin hash-token <token>")
		}
	case "storage.backend":
		if value != blobstore.BackendLocalCAS && value != blobstore.BackendS3 {
			return fmt.Errorf("storage.backend must be %s or %s", blobstore.BackendLocalCAS, blobstore.BackendS3)
		}
	}
	return nil
}
