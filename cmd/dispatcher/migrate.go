package main

import (
	"errors"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/db"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if global.databaseURL == "" {
			return errors.New("DATABASE_URL is not set")
		}
		if err := db.Ping(global.databaseURL); err != nil {
			return err
		}
		if err := db.Up(global.databaseURL, global.migrationsDir); err != nil {
			return err
		}
		logger.Info("[Dispatcher][Migrate] Database is up to date", "dir", global.migrationsDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
