package webhook

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/middleware"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/pagination"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/response"
	"gorm.io/gorm"
)

// Handler wires webhook HTTP endpoints. All routes are owner scoped: a
// subscription is only visible to the user that registered it.
type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/webhooks", authMW)
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/events", h.listEventsEnum)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.GET("/:id/deliveries", h.listDeliveries)
	g.POST("/:id/test", h.testFire)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]subscriptionResponse, len(items))
	for i, sub := range items {
		out[i] = toResponse(&sub)
	}
	response.OK(c, out)
}

func (h *Handler) get(c *gin.Context) {
	sub, err := h.svc.GetByID(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if sub == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(sub))
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateSubscriptionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	sub, err := h.svc.Create(middleware.CurrentUserID(c), &dto)
	if err != nil {
		if errors.Is(err, ErrSecretTooShort) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	// The secret is disclosed here and never again.
	response.Created(c, createdResponse{
		subscriptionResponse: toResponse(sub),
		Secret:               sub.Secret,
	})
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateSubscriptionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	sub, err := h.svc.Update(middleware.CurrentUserID(c), c.Param("id"), &dto)
	if err != nil {
		if errors.Is(err, ErrSecretTooShort) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	if sub == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(sub))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(middleware.CurrentUserID(c), c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) listEventsEnum(c *gin.Context) {
	response.OK(c, eventEnum)
}

func (h *Handler) listDeliveries(c *gin.Context) {
	q := pagination.FromContext(c)
	items, pag, err := h.svc.ListDeliveries(q, middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) testFire(c *gin.Context) {
	outcome, err := h.svc.TestFire(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		if err.Error() == "subscription not found" {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, outcome)
}
