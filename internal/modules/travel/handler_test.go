package travel

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/config"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/integrations"
	redisc "github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouter(t *testing.T, providers map[string]config.APIProvider) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	cache := redisc.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	registry := integrations.NewRegistry(providers, cache, zap.NewNop())

	router := gin.New()
	handler := NewHandler(
		NewFlightsService(registry, zap.NewNop()),
		NewPlacesService(registry, zap.NewNop()),
	)
	handler.RegisterRoutes(router.Group("/api"))
	return router
}

func TestSearchFlightsProviderDisabled(t *testing.T) {
	router := newRouter(t, map[string]config.APIProvider{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/travel/flights?origin=ICN&destination=CDG&departureDate=2026-09-10", nil)
	router.ServeHTTP(rec, req)

	// Disabled integrations degrade to 503, never 500.
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "currently unavailable")
}

func TestSearchFlightsValidation(t *testing.T) {
	router := newRouter(t, map[string]config.APIProvider{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/travel/flights?origin=ICN", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchPlacesHappyPath(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "places-key", r.URL.Query().Get("key"))
		fmt.Fprint(w, `{"results":[{"name":"Louvre"}]}`)
	}))
	defer upstream.Close()

	router := newRouter(t, map[string]config.APIProvider{
		PlacesProviderName: {
			Key:        "places-key",
			BaseURL:    upstream.URL,
			TimeoutMS:  2000,
			RetryTimes: 1,
		},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/travel/places?lat=48.86&lng=2.33", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Louvre")
}

func TestSearchPlacesSoftError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"The provided API key is invalid."}`)
	}))
	defer upstream.Close()

	router := newRouter(t, map[string]config.APIProvider{
		PlacesProviderName: {
			Key:        "places-key",
			BaseURL:    upstream.URL,
			TimeoutMS:  2000,
			RetryTimes: 1,
		},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/travel/places?lat=48.86&lng=2.33", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "API key is invalid")
}
