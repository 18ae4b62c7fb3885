package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/config"
	redisc "github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/redis"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/retry"
	"go.uber.org/zap"
)

// Registry builds authenticated clients for configured providers. One
// instance is constructed at startup and injected wherever an integration
// is consumed; there is no ambient global client state.
type Registry struct {
	providers map[string]config.APIProvider
	tokens    *TokenProvider
	logger    *zap.Logger
}

func NewRegistry(providers map[string]config.APIProvider, cache *redisc.Client, logger *zap.Logger) *Registry {
	return &Registry{
		providers: providers,
		tokens:    NewTokenProvider(providers, cache, logger),
		logger:    logger,
	}
}

// TokenProvider exposes the underlying token provider.
func (r *Registry) TokenProvider() *TokenProvider { return r.tokens }

var versionSegment = regexp.MustCompile(`/v\d+(/|$)`)

// rewriteVersion swaps the first /vN path segment of base for the given
// version, e.g. ".../v1" with "v3" becomes ".../v3".
func rewriteVersion(base, version string) string {
	if version == "" {
		return base
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if versionSegment.MatchString(base) {
		return versionSegment.ReplaceAllString(base, "/"+version+"$1")
	}
	return strings.TrimRight(base, "/") + "/" + version
}

// Client is an authenticated HTTP client for one bearer-token provider.
// Transport-level retries and typed error translation are applied on
// every request; non-2xx responses are inspected, never thrown mid-flight.
type Client struct {
	provider   string
	baseURL    string
	bearer     string
	httpClient *http.Client
	policy     retry.Policy
	logger     *zap.Logger
}

// Client returns an authenticated client for the named provider, or an
// error the caller should translate to "service unavailable":
// ErrProviderDisabled when the integration is off, *AuthenticationError
// when the token could not be obtained.
func (r *Registry) Client(ctx context.Context, name string, versionOverride ...string) (*Client, error) {
	provider, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderDisabled
	}

	token, err := r.tokens.Token(ctx, name)
	if err != nil {
		return nil, err
	}

	base := provider.BaseURL
	if len(versionOverride) > 0 {
		base = rewriteVersion(base, versionOverride[0])
	}

	return &Client{
		provider:   name,
		baseURL:    strings.TrimRight(base, "/"),
		bearer:     token,
		httpClient: &http.Client{Timeout: time.Duration(provider.TimeoutMS) * time.Millisecond},
		policy: retry.Policy{
			Tries:   provider.RetryTimes,
			Backoff: time.Duration(provider.RetrySleepMS) * time.Millisecond,
		},
		logger: r.logger,
	}, nil
}

// dataEnvelope is the common provider response shape.
type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// Get performs a GET against the provider and decodes its data envelope.
// label is a human-readable call-site description ("Hotel Offers Search")
// used only for error attribution and logging.
func (c *Client) Get(ctx context.Context, path string, query url.Values, label string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, label)
}

// Post performs a POST with a JSON body against the provider.
func (c *Client) Post(ctx context.Context, path string, body interface{}, label string) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", label, err)
		}
	}
	return c.do(ctx, http.MethodPost, path, nil, payload, label)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, label string) (json.RawMessage, error) {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var resp *http.Response
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return retry.Stop(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.bearer)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		// Only transport failures are retried; HTTP error statuses are
		// handled after the loop.
		resp, err = c.httpClient.Do(req)
		return err
	})
	if err != nil {
		return nil, &UpstreamError{Message: err.Error(), Context: label}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := extractErrorMessage(raw)
		c.logger.Warn("upstream call failed",
			zap.String("provider", c.provider),
			zap.String("context", label),
			zap.Int("status", resp.StatusCode),
			zap.String("message", message),
		)
		return nil, &UpstreamError{Status: resp.StatusCode, Message: message, Context: label}
	}

	var envelope dataEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data, nil
	}
	return raw, nil
}

// extractErrorMessage pulls a best-effort diagnostic out of the known
// provider error envelopes, falling back to the raw body.
func extractErrorMessage(body []byte) string {
	var withErrors struct {
		Errors []struct {
			Detail string `json:"detail"`
			Title  string `json:"title"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &withErrors); err == nil && len(withErrors.Errors) > 0 {
		if withErrors.Errors[0].Detail != "" {
			return withErrors.Errors[0].Detail
		}
		if withErrors.Errors[0].Title != "" {
			return withErrors.Errors[0].Title
		}
	}

	var withDescription struct {
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &withDescription); err == nil && withDescription.ErrorDescription != "" {
		return withDescription.ErrorDescription
	}

	return truncate(strings.TrimSpace(string(body)), 512)
}
