// Package sources holds the Provider Clients: one per external job-listing
// API, each translating a generic query into the provider's syntax and
// normalizing its payload into engine.CanonicalJob records.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
)

// ErrMissingCredentials is returned by a constructor when the provider's
// credentials are absent. The registry treats it as "provider unavailable".
var ErrMissingCredentials = errors.New("missing provider credentials")

// ErrEmptyQuery is returned by Search when the keywords simplify to nothing.
// No request is made.
var ErrEmptyQuery = errors.New("query has no searchable terms")

// maxResponseBytes caps a single provider response body.
const maxResponseBytes = 8 << 20

// Client is one external job-listing provider.
// Implementations are safe for concurrent use.
type Client interface {
	Name() engine.Provider
	Search(ctx context.Context, keywords, location string, limit, maxAgeDays int) ([]engine.CanonicalJob, error)
	Close()
}

// Option configures a provider client.
type Option func(*apiClient)

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(u string) Option {
	return func(c *apiClient) { c.baseURL = u }
}

// WithHTTPClient sets the HTTP client used for provider calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *apiClient) { c.http = h }
}

// apiClient is the shared HTTP/JSON plumbing behind every provider client:
// rate limiting, per-attempt timeout, status classification and retry.
type apiClient struct {
	provider engine.Provider
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	retry    engine.RetryConfig
	timeout  time.Duration
}

func newAPIClient(p engine.Provider, baseURL string, cfg engine.Config, opts []Option) *apiClient {
	setting := cfg.Providers[p]
	limit := rate.Inf
	if setting.RequestsPerSecond > 0 {
		limit = rate.Limit(setting.RequestsPerSecond)
	}
	burst := max(setting.Burst, 1)

	c := &apiClient{
		provider: p,
		baseURL:  baseURL,
		http:     cfg.HTTPClient,
		limiter:  rate.NewLimiter(limit, burst),
		retry:    cfg.Retry,
		timeout:  cfg.ProviderTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	return c
}

// getJSON issues a GET against endpoint and decodes the JSON body into out.
// Transient failures (timeout, 429, 5xx) are retried; a final failure is
// returned wrapped with the provider name.
func (c *apiClient) getJSON(ctx context.Context, endpoint string, params url.Values, headers http.Header, out any) error {
	engine.IncrProviderRequests(c.provider)
	_, err := engine.RetryDo(ctx, c.retry, func() (struct{}, error) {
		return struct{}{}, c.fetchOnce(ctx, endpoint, params, headers, out)
	})
	if err != nil {
		engine.IncrProviderErrors(c.provider)
		slog.Warn("provider call failed", slog.String("provider", string(c.provider)), slog.Any("error", err))
		return fmt.Errorf("%s: %w", c.provider, err)
	}
	return nil
}

// fetchOnce is a single attempt. The timeout covers the whole attempt,
// body decoding included, and does not depend on the caller's deadline.
func (c *apiClient) fetchOnce(ctx context.Context, endpoint string, params url.Values, headers http.Header, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	u := endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", engine.UserAgentBot)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	if err := engine.CheckStatus(resp); err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Close releases idle connections held for this provider.
func (c *apiClient) Close() {
	c.http.CloseIdleConnections()
}

func (c *apiClient) Name() engine.Provider { return c.provider }

// capLimit clamps a requested result count into [1, providerMax].
func capLimit(limit, providerMax int) int {
	if limit <= 0 {
		return 1
	}
	return min(limit, providerMax)
}
