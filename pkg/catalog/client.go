// Package catalog retrieves imageboard catalog snapshots.
package catalog

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/dmi-tools/questmine/internal/resilience"
)

const defaultUserAgent = "questmine/1.0"

// Client fetches a catalog endpoint's raw JSON.
type Client interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit across catalog fetches.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a catalog client. Transient fetch failures are retried
// with the default backoff policy.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(1, 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "catalog: rate limit wait")
	}

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "catalog: create request %s", url)
		}
		req.Header.Set("User-Agent", defaultUserAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "catalog: fetch %s", url)
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrapf(err, "catalog: read %s", url)
		}

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("catalog: %s returned %d", url, resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}
		return body, nil
	})
}
