package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/config"
	redisc "github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/redis"
	"go.uber.org/zap"
)

const (
	tokenKeyPrefix = "trip:integrations:token:"

	// tokenTTLHeadroom is subtracted from expires_in so a token is always
	// refreshed before the provider invalidates it.
	tokenTTLHeadroom = 60 * time.Second
)

// TokenProvider obtains and caches OAuth2 client-credentials bearer tokens.
//
// There is no cross-process lock around refresh: concurrent callers racing
// a cache miss may each issue a token request. That is accepted: the
// refresh is idempotent and the last write to the cache wins.
type TokenProvider struct {
	providers map[string]config.APIProvider
	cache     *redisc.Client
	logger    *zap.Logger
}

func NewTokenProvider(providers map[string]config.APIProvider, cache *redisc.Client, logger *zap.Logger) *TokenProvider {
	return &TokenProvider{providers: providers, cache: cache, logger: logger}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token returns a valid bearer token for the named provider, from cache
// when possible. It returns ErrProviderDisabled for unconfigured/disabled
// providers and *AuthenticationError when the token endpoint rejects us.
func (tp *TokenProvider) Token(ctx context.Context, name string) (string, error) {
	provider, ok := tp.providers[name]
	if !ok || !provider.IsEnabled() || provider.Secret == "" {
		return "", ErrProviderDisabled
	}

	cacheKey := tokenKeyPrefix + name
	if cached, err := tp.cache.Get(ctx, cacheKey); err == nil && cached != "" {
		return cached, nil
	}

	token, expiresIn, err := tp.requestToken(ctx, name, provider)
	if err != nil {
		return "", err
	}

	ttl := time.Duration(expiresIn)*time.Second - tokenTTLHeadroom
	if ttl < 0 {
		ttl = 0
	}
	if ttl > 0 {
		if err := tp.cache.Set(ctx, cacheKey, token, ttl); err != nil {
			tp.logger.Warn("token cache write failed", zap.String("provider", name), zap.Error(err))
		}
	}
	return token, nil
}

func (tp *TokenProvider) requestToken(ctx context.Context, name string, provider config.APIProvider) (string, int, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", provider.Key)
	form.Set("client_secret", provider.Secret)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(provider.TimeoutMS)*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, provider.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		tp.logger.Error("token request failed", zap.String("provider", name), zap.Error(err))
		return "", 0, &AuthenticationError{Provider: name}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var result tokenResponse
	_ = json.Unmarshal(body, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || result.AccessToken == "" {
		tp.logger.Error("token request rejected",
			zap.String("provider", name),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 512)),
		)
		return "", 0, &AuthenticationError{Provider: name, Status: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	return result.AccessToken, result.ExpiresIn, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
