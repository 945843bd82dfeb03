// Package pipeline orchestrates a full processing run over one catalog
// snapshot: extraction, annotation, toxicity scoring and the merge into
// the aggregate dataset.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dmi-tools/questmine/internal/aggregate"
	"github.com/dmi-tools/questmine/internal/annotate"
	"github.com/dmi-tools/questmine/internal/config"
	"github.com/dmi-tools/questmine/internal/extract"
	"github.com/dmi-tools/questmine/internal/model"
	"github.com/dmi-tools/questmine/internal/runstore"
	"github.com/dmi-tools/questmine/internal/toxicity"
)

// Pipeline processes catalog snapshots into the aggregate dataset.
type Pipeline struct {
	cfg       *config.Config
	annotator *annotate.Annotator
	scorer    *toxicity.Scorer
	runs      runstore.Store
}

// New creates a pipeline. The run store may be nil, in which case run
// history is not recorded.
func New(cfg *config.Config, annotator *annotate.Annotator, scorer *toxicity.Scorer, runs runstore.Store) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		annotator: annotator,
		scorer:    scorer,
		runs:      runs,
	}
}

// Result reports what one snapshot contributed.
type Result struct {
	Source    string
	OPs       int
	NewOPs    int
	Questions int
	Merge     aggregate.MergeStats
}

// aggregatePath and ledgerPath are the shared dataset files under the
// data directory.
func (p *Pipeline) aggregatePath() string {
	return filepath.Join(p.cfg.Data.Dir, "questions.json")
}

func (p *Pipeline) ledgerPath() string {
	return filepath.Join(p.cfg.Data.Dir, "processed_ids.json")
}

// SourceFromPath derives the source name from a snapshot filename. A
// snapshot is named <source>_<timestamp>.json by the collector.
func SourceFromPath(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "_"); i > 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Process runs the full routine over one catalog snapshot file. OPs
// already in the processed-id ledger are skipped, which makes repeated
// runs over the same snapshot idempotent.
func (p *Pipeline) Process(ctx context.Context, snapshotPath string) (*Result, error) {
	started := time.Now().UTC()
	source := SourceFromPath(snapshotPath)
	log := zap.L().With(zap.String("source", source), zap.String("snapshot", snapshotPath))

	raw, err := os.ReadFile(snapshotPath)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read snapshot %s", snapshotPath)
	}
	ops, err := extract.ParseCatalog(raw, source)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: parse snapshot")
	}

	extracted := extract.Extract(ops, extract.Options{
		MinReplies:        p.cfg.Extract.MinReplies,
		MaxQuestionLength: p.cfg.Extract.MaxQuestionLength,
	})

	// Ledger gate: only OPs never seen before go through annotation.
	ledger, err := aggregate.LoadLedger(p.ledgerPath())
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load ledger")
	}
	questions := make([]model.Question, 0, len(extracted.Questions))
	newIDs := make([]int64, 0, len(extracted.OPIDs))
	for _, id := range extracted.OPIDs {
		if !ledger.Contains(id) {
			newIDs = append(newIDs, id)
		}
	}
	newIDSet := make(map[int64]struct{}, len(newIDs))
	for _, id := range newIDs {
		newIDSet[id] = struct{}{}
	}
	for _, q := range extracted.Questions {
		if _, ok := newIDSet[q.ID]; ok {
			questions = append(questions, q)
		}
	}

	result := &Result{
		Source:    source,
		OPs:       len(ops),
		NewOPs:    len(newIDs),
		Questions: len(questions),
	}

	if len(newIDs) == 0 {
		log.Info("no unprocessed OPs in snapshot")
		return result, nil
	}
	log.Info("processing snapshot",
		zap.Int("ops", len(ops)),
		zap.Int("new_ops", len(newIDs)),
		zap.Int("questions", len(questions)))

	if len(questions) > 0 {
		if err := p.annotator.Simplify(ctx, questions); err != nil {
			return nil, eris.Wrap(err, "pipeline: simplify")
		}
		if err := p.annotator.ClassifyExplicit(ctx, questions); err != nil {
			return nil, eris.Wrap(err, "pipeline: classify explicit")
		}
		if err := p.scorer.Score(ctx, questions); err != nil {
			return nil, eris.Wrap(err, "pipeline: score toxicity")
		}

		// Per-snapshot outputs alongside the snapshot file.
		base := strings.TrimSuffix(snapshotPath, filepath.Ext(snapshotPath)) + "_questions"
		if err := aggregate.WriteRunJSON(base+".json", questions); err != nil {
			return nil, eris.Wrap(err, "pipeline: write run json")
		}
		if err := aggregate.WriteRunCSV(base+".csv", questions); err != nil {
			return nil, eris.Wrap(err, "pipeline: write run csv")
		}
	}

	// Merge into the aggregate and persist. The ledger is written after
	// the aggregate so a crash in between re-processes rather than
	// silently drops the snapshot's OPs.
	store, err := aggregate.Load(p.aggregatePath(), p.cfg.SourceNames(), p.cfg.Engines)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load aggregate")
	}
	result.Merge = store.Merge(questions)
	if err := store.Save(); err != nil {
		return nil, eris.Wrap(err, "pipeline: save aggregate")
	}

	ledger.AddAll(newIDs)
	if err := ledger.Save(); err != nil {
		return nil, eris.Wrap(err, "pipeline: save ledger")
	}

	if p.runs != nil {
		run := runstore.Run{
			ID:       uuid.New().String(),
			Snapshot: snapshotPath,
			Sources:  []string{source},
			Stats: runstore.RunStats{
				OPs:       result.OPs,
				Questions: result.Questions,
				NewOPs:    result.NewOPs,
				Created:   result.Merge.Created,
				Updated:   result.Merge.Updated,
				Skipped:   result.Merge.Skipped,
			},
			StartedAt:  started,
			FinishedAt: time.Now().UTC(),
		}
		if err := p.runs.RecordRun(ctx, run); err != nil {
			log.Warn("could not record run", zap.Error(err))
		}
	}

	log.Info("snapshot processed",
		zap.Int("created", result.Merge.Created),
		zap.Int("updated", result.Merge.Updated),
		zap.Int("skipped", result.Merge.Skipped))
	return result, nil
}
