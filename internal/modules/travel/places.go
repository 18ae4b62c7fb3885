package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/integrations"
	"go.uber.org/zap"
)

// PlacesProviderName is the configured API-key place search provider.
const PlacesProviderName = "places"

// PlaceQuery are the parameters for a nearby place search.
type PlaceQuery struct {
	Latitude  float64 `form:"lat"    binding:"required"`
	Longitude float64 `form:"lng"    binding:"required"`
	Radius    int     `form:"radius"`
	Keyword   string  `form:"keyword"`
	Type      string  `form:"type"`
}

// PlacesService searches points of interest through the API-key provider
// family (static key in the query string, soft errors inside 2xx bodies).
type PlacesService struct {
	registry *integrations.Registry
	logger   *zap.Logger
}

func NewPlacesService(registry *integrations.Registry, logger *zap.Logger) *PlacesService {
	return &PlacesService{registry: registry, logger: logger}
}

// SearchNearby finds places around a coordinate.
func (s *PlacesService) SearchNearby(ctx context.Context, q PlaceQuery) (json.RawMessage, error) {
	client, err := s.registry.KeyedClient(PlacesProviderName, "key")
	if err != nil {
		return nil, err
	}

	radius := q.Radius
	if radius <= 0 {
		radius = 1500
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", q.Latitude, q.Longitude))
	params.Set("radius", strconv.Itoa(radius))
	if q.Keyword != "" {
		params.Set("keyword", q.Keyword)
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}

	return client.Get(ctx, "/nearbysearch/json", params, "Nearby Place Search")
}
