package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fleet-ops-api/services"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume credential validation jobs from Redis",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cache, err := services.NewCacheService(cfg.Redis)
		if err != nil {
			return err
		}
		defer cache.Close()

		db, err := services.OpenDB(cfg.Database)
		if err != nil {
			return err
		}
		if err := services.PingDB(ctx, db); err != nil {
			return err
		}

		validator := services.NewCredentialValidator(db)
		return services.NewJobQueue(cache).Run(ctx, validator.Handle)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
