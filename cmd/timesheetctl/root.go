package main

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "timesheetctl",
	Short: "Operate the timesheet reconciliation engine",
	Long: `Operate the timesheet reconciliation engine from the command line.

Settings are read from the environment and an optional .env file, the same
way the API server reads them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		appConfig = cfg
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
		return nil
	},
}

var appConfig *config.Config
