package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ugcmigrate/internal/auth"
	"ugcmigrate/internal/repository"
)

const contentRoot = "/content/"

func requireExactlyArgs(count int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != count {
			return errors.New(message)
		}
		return nil
	}
}

// requireNodePathArg accepts exactly one absolute repository path under
// /content/.
func requireNodePathArg(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("path is required")
	}
	cleaned, err := repository.CleanPath(args[0])
	if err != nil {
		return err
	}
	if !strings.HasPrefix(cleaned, contentRoot) {
		return fmt.Errorf("path must be under %s: %s", contentRoot, cleaned)
	}
	return nil
}

func requireTokenArg(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("token is required")
	}
	return auth.ValidateToken(args[0])
}
