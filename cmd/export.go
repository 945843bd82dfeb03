package main

import (
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/dmi-tools/questmine/internal/aggregate"
)

var (
	exportOut          string
	exportFormat       string
	exportMinCount     int
	exportExplicitOnly bool
	exportMinToxicity  float64
	exportAll          bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the aggregate dataset",
	Long:  "Filters the aggregate dataset by occurrence count, explicitness and toxicity, and writes the result as CSV or XLSX ranked by occurrence count.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := aggregate.Load(
			filepath.Join(cfg.Data.Dir, "questions.json"),
			cfg.SourceNames(), cfg.Engines,
		)
		if err != nil {
			return err
		}

		opts := aggregate.FilterOpts{
			MinCount:       cfg.Filter.MinCount,
			MustBeExplicit: cfg.Filter.MustBeExplicit,
			MinToxicity:    cfg.Filter.MinToxicity,
		}
		if cmd.Flags().Changed("min-count") {
			opts.MinCount = exportMinCount
		}
		if cmd.Flags().Changed("explicit-only") {
			opts.MustBeExplicit = exportExplicitOnly
		}
		if cmd.Flags().Changed("min-toxicity") {
			opts.MinToxicity = exportMinToxicity
		}
		if exportAll {
			opts = aggregate.FilterOpts{}
		}
		records := aggregate.Filter(store.Records, opts)

		switch exportFormat {
		case "csv":
			err = aggregate.WriteCSV(exportOut, records, cfg.SourceNames(), cfg.Engines)
		case "xlsx":
			err = aggregate.WriteXLSX(exportOut, records, cfg.SourceNames(), cfg.Engines)
		default:
			return eris.Errorf("unsupported export format: %s", exportFormat)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d of %d questions to %s\n", len(records), len(store.Records), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "questions_export.csv", "output file")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format (csv or xlsx)")
	exportCmd.Flags().IntVar(&exportMinCount, "min-count", 0, "minimum occurrence count (0 uses config)")
	exportCmd.Flags().BoolVar(&exportExplicitOnly, "explicit-only", false, "only export explicit questions")
	exportCmd.Flags().Float64Var(&exportMinToxicity, "min-toxicity", 0, "minimum toxicity score (0 uses config)")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export everything, ignoring thresholds")

	rootCmd.AddCommand(exportCmd)
}
