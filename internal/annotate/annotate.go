package annotate

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dmi-tools/questmine/internal/model"
)

// Annotator runs the chunked LLM annotation stages over extracted
// questions. A chunk whose annotation keeps failing after MaxRetries
// attempts is skipped; its questions keep their zero-value fields.
type Annotator struct {
	provider   Provider
	chunkSize  int
	maxRetries int
	logger     *zap.Logger
}

// NewAnnotator creates an annotator. chunkSize and maxRetries must be
// at least 1.
func NewAnnotator(provider Provider, chunkSize, maxRetries int) *Annotator {
	if chunkSize < 1 {
		chunkSize = 1
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Annotator{
		provider:   provider,
		chunkSize:  chunkSize,
		maxRetries: maxRetries,
		logger:     zap.L().Named("annotate"),
	}
}

type simplifyInput struct {
	Question string `json:"question"`
	FullText string `json:"full_text"`
}

type simplifyResult struct {
	Simplified string `json:"question_simplified_contextualized"`
	Subject    string `json:"subject"`
}

type explicitResult struct {
	Explicit bool `json:"explicit"`
}

// Simplify annotates every question in place with a simplified,
// contextualized text and a subject.
func (a *Annotator) Simplify(ctx context.Context, questions []model.Question) error {
	for start := 0; start < len(questions); start += a.chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+a.chunkSize, len(questions))
		chunk := questions[start:end]

		inputs := make([]simplifyInput, len(chunk))
		for i, q := range chunk {
			inputs[i] = simplifyInput{Question: q.Text, FullText: q.FullText()}
		}
		payload, err := json.Marshal(inputs)
		if err != nil {
			return eris.Wrap(err, "annotate: marshal simplify input")
		}
		prompt := strings.Replace(simplifyPrompt, inputPlaceholder, string(payload), 1)

		results, ok := annotateChunk[simplifyResult](ctx, a, prompt, len(chunk), "simplify")
		if !ok {
			continue
		}
		for i, res := range results {
			chunk[i].Simplified = res.Simplified
			chunk[i].Subject = strings.ToLower(strings.TrimSpace(res.Subject))
		}

		a.logger.Debug("simplified chunk",
			zap.Int("done", end),
			zap.Int("total", len(questions)))
	}
	return nil
}

// ClassifyExplicit annotates every question in place with an
// explicit/implicit label. Questions in skipped chunks keep a nil
// Explicit and cast no vote during aggregation.
func (a *Annotator) ClassifyExplicit(ctx context.Context, questions []model.Question) error {
	for start := 0; start < len(questions); start += a.chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+a.chunkSize, len(questions))
		chunk := questions[start:end]

		lines := make([]string, len(chunk))
		for i, q := range chunk {
			lines[i] = q.ScoreText()
		}
		prompt := strings.Replace(explicitPrompt, inputPlaceholder, strings.Join(lines, "\n"), 1)

		results, ok := annotateChunk[explicitResult](ctx, a, prompt, len(chunk), "classify explicit")
		if !ok {
			continue
		}
		for i, res := range results {
			explicit := res.Explicit
			chunk[i].Explicit = &explicit
		}

		a.logger.Debug("classified chunk",
			zap.Int("done", end),
			zap.Int("total", len(questions)))
	}
	return nil
}

// annotateChunk sends the prompt until the provider returns a result
// list of the expected length, retrying up to maxRetries attempts.
// Returns ok=false when the chunk had to be skipped.
func annotateChunk[T any](ctx context.Context, a *Annotator, prompt string, want int, stage string) ([]T, bool) {
	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, false
		}

		raw, err := a.provider.Annotate(ctx, prompt)
		if err != nil {
			a.logger.Warn("annotation attempt failed",
				zap.String("stage", stage),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		results, err := parseResults[T](raw)
		if err != nil {
			a.logger.Warn("could not parse annotation output",
				zap.String("stage", stage),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}
		if len(results) != want {
			a.logger.Warn("annotation output length mismatch",
				zap.String("stage", stage),
				zap.Int("attempt", attempt),
				zap.Int("want", want),
				zap.Int("got", len(results)))
			continue
		}
		return results, true
	}

	a.logger.Warn("skipping chunk after repeated failures",
		zap.String("stage", stage),
		zap.Int("attempts", a.maxRetries))
	return nil, false
}

// parseResults extracts the JSON object between the first '{' and the
// last '}' of a completion and decodes its "results" array. Models
// occasionally wrap the object in prose or code fences.
func parseResults[T any](raw string) ([]T, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, eris.New("annotate: no JSON object in completion")
	}

	var envelope struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &envelope); err != nil {
		return nil, eris.Wrap(err, "annotate: decode results")
	}
	if envelope.Results == nil {
		return nil, eris.New("annotate: missing results array")
	}
	return envelope.Results, nil
}
