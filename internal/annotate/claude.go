package annotate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/dmi-tools/questmine/pkg/anthropic"
)

// Provider produces a raw completion for an annotation prompt.
type Provider interface {
	Annotate(ctx context.Context, prompt string) (string, error)
}

// ClaudeProvider sends annotation prompts to the Anthropic API.
type ClaudeProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewClaudeProvider creates a provider backed by an Anthropic client.
func NewClaudeProvider(client anthropic.Client, model string, maxTokens int64, temperature float64) *ClaudeProvider {
	return &ClaudeProvider{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Annotate sends the prompt as a single user message and returns the
// first text block of the response.
func (p *ClaudeProvider) Annotate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
		Temperature: &p.temperature,
	})
	if err != nil {
		return "", eris.Wrap(err, "annotate: create message")
	}

	text := resp.FirstText()
	if text == "" {
		return "", eris.New("annotate: empty completion")
	}
	return text, nil
}
