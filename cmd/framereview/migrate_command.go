package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sendrec/framereview/internal/database"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := database.Connect(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(cfg.Database.URL); err != nil {
				return err
			}
			slog.Info("database migrations applied")
			return nil
		},
	}
}
