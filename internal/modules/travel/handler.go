package travel

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/integrations"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/response"
)

// Handler wires travel search HTTP endpoints.
type Handler struct {
	flights *FlightsService
	places  *PlacesService
}

func NewHandler(flights *FlightsService, places *PlacesService) *Handler {
	return &Handler{flights: flights, places: places}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/travel")
	g.GET("/flights", h.searchFlights)
	g.GET("/hotels", h.searchHotels)
	g.GET("/places", h.searchPlaces)
}

func (h *Handler) searchFlights(c *gin.Context) {
	var q FlightQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	data, err := h.flights.SearchOffers(c.Request.Context(), q)
	if err != nil {
		respondUpstream(c, err)
		return
	}
	response.OK(c, gin.H{"data": data})
}

func (h *Handler) searchHotels(c *gin.Context) {
	var q HotelQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	data, err := h.flights.SearchHotelOffers(c.Request.Context(), q)
	if err != nil {
		respondUpstream(c, err)
		return
	}
	response.OK(c, gin.H{"data": data})
}

func (h *Handler) searchPlaces(c *gin.Context) {
	var q PlaceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	data, err := h.places.SearchNearby(c.Request.Context(), q)
	if err != nil {
		respondUpstream(c, err)
		return
	}
	response.OK(c, gin.H{"data": data})
}

// respondUpstream translates the integrations error taxonomy into the
// degraded-service responses the API promises: third-party trouble is
// never a 500.
func respondUpstream(c *gin.Context, err error) {
	var authErr *integrations.AuthenticationError
	var upstream *integrations.UpstreamError
	switch {
	case errors.Is(err, integrations.ErrProviderDisabled):
		response.ServiceUnavailable(c, "this search is currently unavailable")
	case errors.As(err, &authErr):
		response.ServiceUnavailable(c, "this search is currently unavailable")
	case errors.As(err, &upstream):
		response.ServiceUnavailable(c, upstream.Message)
	default:
		response.InternalError(c, err)
	}
}
