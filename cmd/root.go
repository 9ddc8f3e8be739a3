package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caseworks/activity-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "activity-cli",
	Short: "Activity spreadsheet analyzer",
	Long:  "Classifies recorded actions from a spreadsheet, filters them against a rate table and exclusion list, and exports consistent multi-dimensional aggregates to a styled workbook.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
