// Package moderation is a minimal client for the OpenAI moderation API.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "omni-moderation-latest"

	// AverageMetric is the derived mean over all category scores, reported
	// alongside the raw categories.
	AverageMetric = "OPENAI_MOD_AVG"
)

// Client scores a single text against the moderation categories.
type Client interface {
	Score(ctx context.Context, text string) (map[string]float64, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithModel overrides the default moderation model.
func WithModel(model string) Option {
	return func(c *httpClient) {
		c.model = model
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates an OpenAI moderation client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
}

// Score returns the per-category moderation scores for text, keys
// uppercased, plus the derived average metric.
func (c *httpClient) Score(ctx context.Context, text string) (map[string]float64, error) {
	body, err := json.Marshal(moderationRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, eris.Wrap(err, "moderation: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/moderations", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "moderation: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "moderation: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "moderation: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("moderation: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result moderationResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "moderation: unmarshal response")
	}
	if len(result.Results) == 0 || len(result.Results[0].CategoryScores) == 0 {
		return nil, eris.New("moderation: empty result")
	}

	raw := result.Results[0].CategoryScores
	scores := make(map[string]float64, len(raw)+1)
	sum := 0.0
	for category, v := range raw {
		scores[strings.ToUpper(category)] = round9(v)
		sum += v
	}
	scores[AverageMetric] = round9(sum / float64(len(raw)))
	return scores, nil
}

func round9(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
