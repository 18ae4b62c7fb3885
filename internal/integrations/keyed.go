package integrations

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/retry"
	"go.uber.org/zap"
)

// KeyedClient serves the second provider family: no OAuth, the api key is
// injected as a query parameter on every request. These providers report
// some failures inside a 2xx body, so successful responses are inspected
// for an embedded error before being returned.
type KeyedClient struct {
	provider   string
	baseURL    string
	apiKey     string
	keyParam   string
	httpClient *http.Client
	policy     retry.Policy
	logger     *zap.Logger
}

// KeyedClient returns a client for the named API-key provider. keyParam is
// the query parameter name the provider expects ("key", "apiKey", ...).
func (r *Registry) KeyedClient(name, keyParam string) (*KeyedClient, error) {
	provider, ok := r.providers[name]
	if !ok || !provider.IsEnabled() {
		return nil, ErrProviderDisabled
	}
	if keyParam == "" {
		keyParam = "key"
	}

	return &KeyedClient{
		provider:   name,
		baseURL:    strings.TrimRight(provider.BaseURL, "/"),
		apiKey:     provider.Key,
		keyParam:   keyParam,
		httpClient: &http.Client{Timeout: time.Duration(provider.TimeoutMS) * time.Millisecond},
		policy: retry.Policy{
			Tries:   provider.RetryTimes,
			Backoff: time.Duration(provider.RetrySleepMS) * time.Millisecond,
		},
		logger: r.logger,
	}, nil
}

// Get performs a GET with the api key attached and returns the decoded
// data envelope (or the raw body when the provider does not wrap).
func (c *KeyedClient) Get(ctx context.Context, path string, query url.Values, label string) (json.RawMessage, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set(c.keyParam, c.apiKey)

	target := c.baseURL + "/" + strings.TrimLeft(path, "/") + "?" + query.Encode()

	var resp *http.Response
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return retry.Stop(err)
		}
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

	// Provider soft-error convention: a 2xx body may still carry an
	// embedded error object.
	if message, found := embeddedError(raw); found {
		c.logger.Warn("upstream soft error",
			zap.String("provider", c.provider),
			zap.String("context", label),
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

// embeddedError detects {"error": "..."} and {"error": {"message": "..."}}
// shapes inside an otherwise successful response.
func embeddedError(body []byte) (string, bool) {
	var probe struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || len(probe.Error) == 0 || string(probe.Error) == "null" {
		return "", false
	}

	var asString string
	if err := json.Unmarshal(probe.Error, &asString); err == nil {
		return asString, true
	}
	var asObject struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(probe.Error, &asObject); err == nil && asObject.Message != "" {
		return asObject.Message, true
	}
	return truncate(string(probe.Error), 512), true
}
