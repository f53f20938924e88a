package main

import (
	"context"

	"github.com/spf13/cobra"

	"fleet-ops-api/services"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit the bootstrap ETA model and overwrite the artifact",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store := services.NewModelStore(cfg.Model)
		m, err := store.Train(context.Background())
		if err != nil {
			return err
		}
		cmd.Printf("model v%d written to %s (intercept=%.4f, coefficients=%v)\n",
			m.Version, store.Path(), m.Intercept, m.Coefficients)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
}
