package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ugcmigrate/internal/config"
	"ugcmigrate/internal/repository"
)

// migrateResult is what `migrate` reports after applying.
type migrateResult struct {
	FromVersion int                        `json:"from_version"`
	ToVersion   int                        `json:"to_version"`
	Applied     []repository.MigrationInfo `json:"applied"`
}

func newMigrateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var dryRun bool
	var inspect bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run or inspect repository schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			before, err := migrationStatus(cfg)
			if err != nil {
				return err
			}
			if inspect || dryRun {
				return writeMigrationStatus(before, *jsonOutput)
			}

			// Opening the repository applies pending migrations.
			repo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if err := repo.Close(); err != nil {
				return err
			}

			result := migrateResult{
				FromVersion: before.CurrentVersion,
				ToVersion:   before.AvailableVersion,
				Applied:     before.Pending,
			}
			if result.Applied == nil {
				result.Applied = []repository.MigrationInfo{}
			}
			if *jsonOutput {
				return writeJSON(result)
			}
			if len(result.Applied) == 0 {
				return writePlain("Schema already at version %d.\n", result.ToVersion)
			}
			for _, m := range result.Applied {
				_ = writePlain("applied %d: %s\n", m.Version, m.Description)
			}
			return writePlain("Schema migrated from version %d to %d.\n", result.FromVersion, result.ToVersion)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show pending migrations without applying")
	cmd.Flags().BoolVar(&inspect, "inspect", false, "show migration status")

	return cmd
}

func migrationStatus(cfg *config.Config) (*repository.MigrationStatus, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	db, err := repository.OpenRaw(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	plan, err := repository.MigrationPlan(db)
	if err != nil {
		return nil, fmt.Errorf("inspect migrations: %w", err)
	}
	return plan, nil
}

func writeMigrationStatus(plan *repository.MigrationStatus, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(plan)
	}

	_ = writePlain("Current version: %d\n", plan.CurrentVersion)
	_ = writePlain("Available version: %d\n", plan.AvailableVersion)
	if len(plan.Pending) == 0 {
		return writePlain("No pending migrations.\n")
	}
	_ = writePlain("Pending migrations: %d\n", len(plan.Pending))
	for _, m := range plan.Pending {
		_ = writePlain("  %d: %s\n", m.Version, m.Description)
	}
	return nil
}
