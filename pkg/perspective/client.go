// Package perspective is a minimal client for the Perspective Comment
// Analyzer API.
package perspective

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://commentanalyzer.googleapis.com/v1alpha1"

// Attributes is the fixed set of attributes requested per comment.
// TOXICITY is the canonical metric used for downstream filtering.
var Attributes = []string{
	"TOXICITY",
	"SEVERE_TOXICITY",
	"IDENTITY_ATTACK",
	"INSULT",
	"PROFANITY",
	"THREAT",
}

// ErrRateLimited signals that the API returned HTTP 429. Callers back off
// and retry; every other failure is terminal for the item.
var ErrRateLimited = eris.New("perspective: rate limited")

// Client scores a single text against the fixed attribute set.
type Client interface {
	AnalyzeComment(ctx context.Context, text string) (map[string]float64, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
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
	http    *http.Client
}

// NewClient creates a Perspective API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type analyzeRequest struct {
	Comment             comment             `json:"comment"`
	RequestedAttributes map[string]struct{} `json:"requestedAttributes"`
	DoNotStore          bool                `json:"doNotStore"`
}

type comment struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	AttributeScores map[string]struct {
		SummaryScore struct {
			Value float64 `json:"value"`
		} `json:"summaryScore"`
	} `json:"attributeScores"`
}

func (c *httpClient) AnalyzeComment(ctx context.Context, text string) (map[string]float64, error) {
	reqBody := analyzeRequest{
		Comment:             comment{Text: text},
		RequestedAttributes: make(map[string]struct{}, len(Attributes)),
		DoNotStore:          true,
	}
	for _, attr := range Attributes {
		reqBody.RequestedAttributes[attr] = struct{}{}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, eris.Wrap(err, "perspective: marshal request")
	}

	url := c.baseURL + "/comments:analyze?key=" + c.apiKey
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "perspective: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "perspective: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "perspective: read response")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("perspective: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result analyzeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "perspective: unmarshal response")
	}

	scores := make(map[string]float64, len(Attributes))
	for _, attr := range Attributes {
		entry, ok := result.AttributeScores[attr]
		if !ok {
			return nil, eris.Errorf("perspective: attribute %s missing from response", attr)
		}
		scores[attr] = entry.SummaryScore.Value
	}
	return scores, nil
}
