package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmi-tools/questmine/internal/annotate"
	"github.com/dmi-tools/questmine/internal/pipeline"
	"github.com/dmi-tools/questmine/internal/toxicity"
	"github.com/dmi-tools/questmine/pkg/anthropic"
	"github.com/dmi-tools/questmine/pkg/moderation"
	"github.com/dmi-tools/questmine/pkg/perspective"
)

var processCmd = &cobra.Command{
	Use:   "process [snapshot...]",
	Short: "Process catalog snapshots into the aggregate dataset",
	Long:  "Runs the full routine over the given snapshot files: question extraction, LLM simplification and explicit/implicit classification, toxicity scoring, and the merge into data/questions.json. Without arguments, all collected snapshots that have no per-snapshot output yet are processed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic API key is required (QUESTMINE_ANTHROPIC_KEY)")
		}

		snapshots := args
		if len(snapshots) == 0 {
			var err error
			snapshots, err = unprocessedSnapshots(cfg.Data.Dir)
			if err != nil {
				return err
			}
			if len(snapshots) == 0 {
				fmt.Println("No unprocessed snapshots found.")
				return nil
			}
		}

		provider := annotate.NewClaudeProvider(
			anthropic.NewClient(cfg.Anthropic.Key),
			cfg.Anthropic.Model,
			cfg.Annotate.MaxTokens,
			cfg.Annotate.Temperature,
		)
		annotator := annotate.NewAnnotator(provider, cfg.Annotate.ChunkSize, cfg.Annotate.MaxRetries)

		var perspectiveClient perspective.Client
		if cfg.Perspective.Key != "" {
			perspectiveClient = perspective.NewClient(cfg.Perspective.Key)
		} else {
			zap.L().Warn("no Perspective API key, skipping Perspective scoring")
		}
		var moderationClient moderation.Client
		if cfg.Moderation.Key != "" {
			moderationClient = moderation.NewClient(cfg.Moderation.Key, moderation.WithModel(cfg.Moderation.Model))
		} else {
			zap.L().Warn("no moderation API key, skipping moderation scoring")
		}
		scorer := toxicity.NewScorer(perspectiveClient, moderationClient, toxicity.Options{
			PerspectiveInterval: cfg.Perspective.Interval,
			ModerationInterval:  cfg.Moderation.Interval,
			MaxRetries:          cfg.Perspective.MaxRetries,
			BackoffStep:         cfg.Perspective.BackoffStep,
		})

		runs, err := initRunStore(ctx)
		if err != nil {
			return err
		}
		defer runs.Close() //nolint:errcheck

		p := pipeline.New(cfg, annotator, scorer, runs)
		for _, snapshot := range snapshots {
			result, err := p.Process(ctx, snapshot)
			if err != nil {
				return eris.Wrapf(err, "process %s", snapshot)
			}
			fmt.Printf("%s: %d OPs (%d new), %d questions, %d created, %d updated, %d skipped\n",
				snapshot, result.OPs, result.NewOPs, result.Questions,
				result.Merge.Created, result.Merge.Updated, result.Merge.Skipped)
		}

		return nil
	},
}

// unprocessedSnapshots lists collected snapshots that have no
// per-snapshot question output next to them yet.
func unprocessedSnapshots(dataDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, "catalogs", "*", "*.json"))
	if err != nil {
		return nil, eris.Wrap(err, "glob snapshots")
	}

	var snapshots []string
	for _, m := range matches {
		if strings.HasSuffix(m, "_questions.json") {
			continue
		}
		marker := strings.TrimSuffix(m, ".json") + "_questions.csv"
		if _, err := os.Stat(marker); err == nil {
			continue
		}
		snapshots = append(snapshots, m)
	}
	return snapshots, nil
}

func init() {
	rootCmd.AddCommand(processCmd)
}
