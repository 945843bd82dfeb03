package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmi-tools/questmine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "questmine",
	Short: "Imageboard question mining pipeline",
	Long:  "Collects imageboard catalog snapshots, extracts questions from popular threads, annotates them with LLMs and toxicity scores, and merges them into a ranked aggregate dataset.",
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
