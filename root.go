package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/tandem-go/service/config"
	"github.com/khaledhikmat/tandem-go/service/lgr"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "tandem",
		Short:         "Run a slow detector and a fast tracker in tandem over a video stream",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadEnv()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "tandem.toml", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(&configFlag))
	rootCmd.AddCommand(newWorkerCommand(&configFlag))
	rootCmd.AddCommand(newConfigCommand(&configFlag))
	rootCmd.AddCommand(newStatsCommand(&configFlag))

	return rootCmd
}

// loadEnv loads env vars from .env if we are in DEV mode. Worker processes
// inherit the parent's environment instead.
func loadEnv() {
	if env := os.Getenv("RUN_TIME_ENV"); env != "dev" && env != "" {
		return
	}
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	lgr.Logger.Debug("loading env vars from .env file")
	if err := godotenv.Load(); err != nil {
		lgr.Logger.Error("error loading .env file", slog.Any("error", xerrors.New(err.Error())))
	}
}

// loadConfig reads the configuration and applies a substrate override.
func loadConfig(path, substrate string) (config.IService, error) {
	cfgSvc, err := config.NewFromFile(path)
	if err != nil {
		return nil, err
	}
	if substrate == "" || substrate == cfgSvc.GetSubstrate() {
		return cfgSvc, nil
	}

	s := cfgSvc.Settings()
	s.Substrate = substrate
	if err := config.Validate(s); err != nil {
		return nil, err
	}
	return config.NewFromSettings(s), nil
}
