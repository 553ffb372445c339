package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/matjip/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "matjip",
	Short: "Restaurant identity resolution crawler",
	Long:  "Collects restaurant names from video and local search, resolves each to a canonical map listing, enriches it with place details, photos and blog reviews, and keeps a trend-scored record per restaurant.",
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
