package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/kenko/internal/storage"
	"github.com/ashita-ai/kenko/migrations"
)

func newMigrateCmd(stderr io.Writer) *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded PostgreSQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if databaseURL == "" {
				return fmt.Errorf("migrate: DATABASE_URL or --database-url is required")
			}
			ctx := cmd.Context()
			logger := newLogger(stderr)

			db, err := storage.New(ctx, databaseURL, logger)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer db.Close(ctx)

			files, err := storage.MigrationFiles(migrations.FS)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if err := db.RunMigrations(ctx, migrations.FS); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations applied", "available", len(files))
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	return cmd
}
