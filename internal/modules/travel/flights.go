package travel

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/integrations"
	"go.uber.org/zap"
)

// ProviderName is the configured OAuth travel API used for flight and
// hotel searches.
const ProviderName = "amadeus"

// FlightQuery are the parameters for a flight offers search.
type FlightQuery struct {
	Origin        string `form:"origin"        binding:"required,len=3"`
	Destination   string `form:"destination"   binding:"required,len=3"`
	DepartureDate string `form:"departureDate" binding:"required"`
	ReturnDate    string `form:"returnDate"`
	Adults        int    `form:"adults"`
	Max           int    `form:"max"`
}

// HotelQuery are the parameters for a hotel offers search.
type HotelQuery struct {
	CityCode string `form:"cityCode" binding:"required,len=3"`
	CheckIn  string `form:"checkIn"`
	CheckOut string `form:"checkOut"`
	Adults   int    `form:"adults"`
}

// FlightsService searches flights and hotels through the OAuth provider
// family. All failures surface as the integrations error taxonomy so the
// handler can translate them uniformly.
type FlightsService struct {
	registry *integrations.Registry
	logger   *zap.Logger
}

func NewFlightsService(registry *integrations.Registry, logger *zap.Logger) *FlightsService {
	return &FlightsService{registry: registry, logger: logger}
}

// SearchOffers runs a flight offers search. The offers endpoint lives
// under /v2 while the provider base URL is configured at /v1.
func (s *FlightsService) SearchOffers(ctx context.Context, q FlightQuery) (json.RawMessage, error) {
	client, err := s.registry.Client(ctx, ProviderName, "v2")
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("originLocationCode", q.Origin)
	params.Set("destinationLocationCode", q.Destination)
	params.Set("departureDate", q.DepartureDate)
	if q.ReturnDate != "" {
		params.Set("returnDate", q.ReturnDate)
	}
	adults := q.Adults
	if adults < 1 {
		adults = 1
	}
	params.Set("adults", strconv.Itoa(adults))
	if q.Max > 0 {
		params.Set("max", strconv.Itoa(q.Max))
	}

	return client.Get(ctx, "/shopping/flight-offers", params, "Flight Offers Search")
}

// SearchHotelOffers runs a hotel offers search against the /v3 endpoint.
func (s *FlightsService) SearchHotelOffers(ctx context.Context, q HotelQuery) (json.RawMessage, error) {
	client, err := s.registry.Client(ctx, ProviderName, "v3")
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("cityCode", q.CityCode)
	if q.CheckIn != "" {
		params.Set("checkInDate", q.CheckIn)
	}
	if q.CheckOut != "" {
		params.Set("checkOutDate", q.CheckOut)
	}
	if q.Adults > 0 {
		params.Set("adults", strconv.Itoa(q.Adults))
	}

	return client.Get(ctx, "/shopping/hotel-offers", params, "Hotel Offers Search")
}
