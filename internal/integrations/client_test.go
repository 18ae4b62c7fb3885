package integrations

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newBearerRegistry stands up a provider that serves both the token
// endpoint and the API under one httptest server.
func newBearerRegistry(t *testing.T, api http.HandlerFunc) (*Registry, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"test-token","expires_in":1800}`)
	})
	mux.HandleFunc("/", api)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cache, _ := newTestCache(t)
	providers := map[string]config.APIProvider{
		"amadeus": {
			Key:          "id",
			Secret:       "secret",
			TokenURL:     server.URL + "/oauth/token",
			BaseURL:      server.URL + "/v1",
			TimeoutMS:    2000,
			RetryTimes:   3,
			RetrySleepMS: 1,
		},
	}
	return NewRegistry(providers, cache, zap.NewNop()), server
}

func TestClientRetriesTransportFailures(t *testing.T) {
	var calls atomic.Int32
	registry, _ := newBearerRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			// Abort without a response so the client sees a transport error.
			panic(http.ErrAbortHandler)
		}
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":{"ok":true}}`)
	})

	client, err := registry.Client(context.Background(), "amadeus")
	require.NoError(t, err)

	data, err := client.Get(context.Background(), "/hotels", nil, "Hotel Search")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientTransportExhaustion(t *testing.T) {
	var calls atomic.Int32
	registry, _ := newBearerRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		panic(http.ErrAbortHandler)
	})

	client, err := registry.Client(context.Background(), "amadeus")
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/hotels", nil, "Hotel Search")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Zero(t, upstream.Status)
	assert.Equal(t, "Hotel Search", upstream.Context)
	assert.Equal(t, int32(3), calls.Load(), "exactly RetryTimes attempts")
}

func TestClientErrorEnvelopeExtraction(t *testing.T) {
	registry, _ := newBearerRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errors":[{"status":400,"title":"INVALID DATE","detail":"departure date is in the past"}]}`)
	})

	client, err := registry.Client(context.Background(), "amadeus")
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/flights", nil, "Flight Offers Search")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadRequest, upstream.Status)
	assert.Equal(t, "departure date is in the past", upstream.Message)
	assert.Contains(t, upstream.Error(), "Flight Offers Search")
}

func TestClientUnwrappedBody(t *testing.T) {
	registry, _ := newBearerRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"plain":"body"}`)
	})

	client, err := registry.Client(context.Background(), "amadeus")
	require.NoError(t, err)

	data, err := client.Get(context.Background(), "/anything", nil, "Plain Call")
	require.NoError(t, err)
	assert.JSONEq(t, `{"plain":"body"}`, string(data))
}

func TestClientVersionOverride(t *testing.T) {
	var gotPath string
	registry, _ := newBearerRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"data":[]}`)
	})

	client, err := registry.Client(context.Background(), "amadeus", "v3")
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/shopping/hotel-offers", url.Values{"cityCode": {"PAR"}}, "Hotel Offers Search")
	require.NoError(t, err)
	assert.Equal(t, "/v3/shopping/hotel-offers", gotPath)
}

func TestRewriteVersion(t *testing.T) {
	cases := []struct {
		base, version, want string
	}{
		{"https://api.example.com/v1", "v3", "https://api.example.com/v3"},
		{"https://api.example.com/v1/", "v2", "https://api.example.com/v2/"},
		{"https://api.example.com/v1/sub", "v3", "https://api.example.com/v3/sub"},
		{"https://api.example.com", "v2", "https://api.example.com/v2"},
		{"https://api.example.com/v1", "2", "https://api.example.com/v2"},
		{"https://api.example.com/v1", "", "https://api.example.com/v1"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, rewriteVersion(tc.base, tc.version), "base=%s version=%s", tc.base, tc.version)
	}
}

func newKeyedRegistry(t *testing.T, api http.HandlerFunc) *Registry {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	cache, _ := newTestCache(t)
	providers := map[string]config.APIProvider{
		"places": {
			Key:          "places-key",
			BaseURL:      server.URL,
			TimeoutMS:    2000,
			RetryTimes:   2,
			RetrySleepMS: 1,
		},
	}
	return NewRegistry(providers, cache, zap.NewNop())
}

func TestKeyedClientInjectsKey(t *testing.T) {
	registry := newKeyedRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "places-key", r.URL.Query().Get("key"))
		assert.Equal(t, "museum", r.URL.Query().Get("query"))
		fmt.Fprint(w, `{"results":[]}`)
	})

	client, err := registry.KeyedClient("places", "")
	require.NoError(t, err)

	data, err := client.Get(context.Background(), "/textsearch", url.Values{"query": {"museum"}}, "Place Search")
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[]}`, string(data))
}

func TestKeyedClientSoftError(t *testing.T) {
	registry := newKeyedRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		// A 2xx response carrying an embedded error must still fail.
		fmt.Fprint(w, `{"error":{"code":403,"message":"The provided API key is invalid."}}`)
	})

	client, err := registry.KeyedClient("places", "key")
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/details", nil, "Place Details")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusOK, upstream.Status)
	assert.Equal(t, "The provided API key is invalid.", upstream.Message)
}

func TestKeyedClientDisabled(t *testing.T) {
	cache, _ := newTestCache(t)
	registry := NewRegistry(map[string]config.APIProvider{}, cache, zap.NewNop())

	_, err := registry.KeyedClient("places", "key")
	assert.ErrorIs(t, err, ErrProviderDisabled)
}
