package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmi-tools/questmine/internal/model"
)

// stubProvider replays canned completions in order, recording the
// prompts it receives.
type stubProvider struct {
	responses []string
	errs      []error
	prompts   []string
	calls     int
}

func (s *stubProvider) Annotate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return s.responses[len(s.responses)-1], nil
}

func simplifyResponse(entries ...simplifyResult) string {
	payload, _ := json.Marshal(struct {
		Results []simplifyResult `json:"results"`
	}{entries})
	return string(payload)
}

func explicitResponse(values ...bool) string {
	results := make([]explicitResult, len(values))
	for i, v := range values {
		results[i] = explicitResult{Explicit: v}
	}
	payload, _ := json.Marshal(struct {
		Results []explicitResult `json:"results"`
	}{results})
	return string(payload)
}

func TestSimplifyAnnotatesInPlace(t *testing.T) {
	questions := []model.Question{
		{OP: model.OP{ID: 1, Body: "Let's talk ETFs. Are they cheap?"}, Text: "Are they cheap?"},
		{OP: model.OP{ID: 2, Body: "Is crypto dead?"}, Text: "Is crypto dead?"},
	}
	provider := &stubProvider{responses: []string{simplifyResponse(
		simplifyResult{Simplified: "Are ETFs cheap?", Subject: " ETFs "},
		simplifyResult{Simplified: "Is crypto dead?", Subject: "Crypto"},
	)}}

	a := NewAnnotator(provider, 3, 5)
	require.NoError(t, a.Simplify(context.Background(), questions))

	assert.Equal(t, "Are ETFs cheap?", questions[0].Simplified)
	assert.Equal(t, "etfs", questions[0].Subject)
	assert.Equal(t, "crypto", questions[1].Subject)
	assert.Equal(t, 1, provider.calls)

	// The prompt carries both the question and the surrounding post.
	assert.Contains(t, provider.prompts[0], "Are they cheap?")
	assert.Contains(t, provider.prompts[0], "Let's talk ETFs.")
}

func TestSimplifyChunksInput(t *testing.T) {
	questions := make([]model.Question, 5)
	responses := make([]string, 0, 2)
	for i := range questions {
		questions[i] = model.Question{OP: model.OP{ID: int64(i)}, Text: fmt.Sprintf("Q%d?", i)}
	}
	responses = append(responses,
		simplifyResponse(simplifyResult{Simplified: "a"}, simplifyResult{Simplified: "b"}, simplifyResult{Simplified: "c"}),
		simplifyResponse(simplifyResult{Simplified: "d"}, simplifyResult{Simplified: "e"}),
	)
	provider := &stubProvider{responses: responses}

	a := NewAnnotator(provider, 3, 5)
	require.NoError(t, a.Simplify(context.Background(), questions))

	assert.Equal(t, 2, provider.calls)
	assert.Equal(t, "c", questions[2].Simplified)
	assert.Equal(t, "e", questions[4].Simplified)
}

func TestSimplifyRetriesOnLengthMismatch(t *testing.T) {
	questions := []model.Question{
		{OP: model.OP{ID: 1}, Text: "One?"},
		{OP: model.OP{ID: 2}, Text: "Two?"},
	}
	provider := &stubProvider{responses: []string{
		simplifyResponse(simplifyResult{Simplified: "only one"}),
		simplifyResponse(simplifyResult{Simplified: "one"}, simplifyResult{Simplified: "two"}),
	}}

	a := NewAnnotator(provider, 3, 5)
	require.NoError(t, a.Simplify(context.Background(), questions))

	assert.Equal(t, 2, provider.calls)
	assert.Equal(t, "two", questions[1].Simplified)
}

func TestSimplifySkipsChunkAfterExhaustedRetries(t *testing.T) {
	questions := []model.Question{{OP: model.OP{ID: 1}, Text: "One?"}}
	// Always one result short of the requested two... here: zero
	// results against one question, every attempt.
	provider := &stubProvider{responses: []string{simplifyResponse()}}

	a := NewAnnotator(provider, 3, 4)
	require.NoError(t, a.Simplify(context.Background(), questions))

	assert.Equal(t, 4, provider.calls)
	assert.Empty(t, questions[0].Simplified)
	assert.Empty(t, questions[0].Subject)
}

func TestClassifyExplicit(t *testing.T) {
	questions := []model.Question{
		{OP: model.OP{ID: 1}, Text: "raw one?", Simplified: "What is the capital of France?"},
		{OP: model.OP{ID: 2}, Text: "Is it true?"},
	}
	provider := &stubProvider{responses: []string{explicitResponse(true, false)}}

	a := NewAnnotator(provider, 3, 5)
	require.NoError(t, a.ClassifyExplicit(context.Background(), questions))

	require.NotNil(t, questions[0].Explicit)
	require.NotNil(t, questions[1].Explicit)
	assert.True(t, *questions[0].Explicit)
	assert.False(t, *questions[1].Explicit)

	// Simplified text is preferred in the payload, raw text is the
	// fallback for questions that were never simplified.
	assert.Contains(t, provider.prompts[0], "What is the capital of France?")
	assert.Contains(t, provider.prompts[0], "Is it true?")
	assert.NotContains(t, provider.prompts[0], "raw one?")
}

func TestClassifyExplicitSkippedChunkLeavesNil(t *testing.T) {
	questions := []model.Question{{OP: model.OP{ID: 1}, Text: "One?"}}
	provider := &stubProvider{responses: []string{"not json at all"}}

	a := NewAnnotator(provider, 3, 2)
	require.NoError(t, a.ClassifyExplicit(context.Background(), questions))

	assert.Equal(t, 2, provider.calls)
	assert.Nil(t, questions[0].Explicit)
}

func TestParseResultsStripsSurroundingProse(t *testing.T) {
	raw := "Sure, here you go:\n```json\n" + explicitResponse(true) + "\n```"
	results, err := parseResults[explicitResult](raw)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Explicit)
}

func TestParseResultsErrors(t *testing.T) {
	_, err := parseResults[explicitResult]("no braces here")
	assert.Error(t, err)

	_, err = parseResults[explicitResult](`{"other": []}`)
	assert.Error(t, err)
}

func TestAnnotateRespectsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &stubProvider{responses: []string{explicitResponse(true)}}
	a := NewAnnotator(provider, 3, 5)

	err := a.ClassifyExplicit(ctx, []model.Question{{OP: model.OP{ID: 1}, Text: "One?"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, provider.calls)
}
