package main

import (
	"github.com/spf13/cobra"

	"github.com/rishta-app/rishta/internal/config"
	"github.com/rishta-app/rishta/internal/repository"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return repository.Migrate(cfg.DatabaseURL(), migrationsDir)
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "migrations", "migrations source directory")
	rootCmd.AddCommand(migrateCmd)
}
