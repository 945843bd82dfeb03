package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmi-tools/questmine/internal/config"
	"github.com/dmi-tools/questmine/pkg/catalog"
)

var collectSourcesFile string

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Retrieve catalog snapshots for all configured sources",
	Long:  "Fetches the catalog endpoint of every configured source and saves the raw response under data/catalogs/<source>/. A source that cannot be fetched is logged and skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sources := cfg.Sources
		if collectSourcesFile != "" {
			reg, err := config.LoadSources(collectSourcesFile)
			if err != nil {
				return err
			}
			sources = reg.Sources
		}
		if len(sources) == 0 {
			return eris.New("no sources configured")
		}

		client := catalog.NewClient(catalog.WithRateLimit(1))

		var collected int
		for name, url := range sources {
			raw, err := client.Fetch(ctx, url)
			if err != nil {
				zap.L().Warn("could not retrieve catalog",
					zap.String("source", name),
					zap.String("url", url),
					zap.Error(err))
				continue
			}

			dir := filepath.Join(cfg.Data.Dir, "catalogs", name)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return eris.Wrapf(err, "create snapshot dir %s", dir)
			}
			path := filepath.Join(dir, fmt.Sprintf("%s_%d.json", name, time.Now().Unix()))
			if err := os.WriteFile(path, raw, 0o644); err != nil {
				return eris.Wrapf(err, "write snapshot %s", path)
			}

			zap.L().Info("retrieved catalog",
				zap.String("source", name),
				zap.String("snapshot", path))
			collected++
		}

		fmt.Printf("Collected %d/%d catalogs\n", collected, len(sources))
		return nil
	},
}

func init() {
	collectCmd.Flags().StringVar(&collectSourcesFile, "sources", "", "YAML file with source definitions (default from config)")
	rootCmd.AddCommand(collectCmd)
}
