package main

import (
	"fmt"
	"io"

	"github.com/joho/godotenv"
	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fleet-ops-api/config"
	"fleet-ops-api/logger"
)

var (
	cfg       *config.Config
	logOutput io.Writer
)

var rootCmd = &cobra.Command{
	Use:   "fleet-ops-api",
	Short: "Fleet operations ETA prediction service",
	Long: `Serves ETA predictions for delivery trips. Every prediction also
records a sample compliance batch (drug test, optional violation and
credential check) for the driver.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, relying on env vars")
	}

	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logOutput = logger.Setup(cfg.Log)
	return nil
}
