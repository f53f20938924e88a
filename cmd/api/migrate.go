package main

import (
	"context"
	"time"

	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fleet-ops-api/services"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the compliance tables and seed drivers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		db, err := services.OpenDB(cfg.Database)
		if err != nil {
			return err
		}
		if err := services.Migrate(ctx, db); err != nil {
			return err
		}
		logrus.Info("database migrated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
