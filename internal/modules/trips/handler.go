package trips

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/middleware"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/response"
)

// Handler wires trip HTTP endpoints.
type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/trips")
	g.GET("/:id", middleware.OptionalAuth(), h.get)
	g.GET("/:id/reviews", h.listReviews)
	g.GET("/:id/comments", h.listComments)

	owned := g.Group("", authMW)
	owned.GET("", h.list)
	owned.POST("", h.create)
	owned.PUT("/:id", h.update)
	owned.PATCH("/:id", h.update)
	owned.DELETE("/:id", h.delete)
	owned.POST("/:id/checkpoints", h.addCheckpoint)
	owned.POST("/:id/checkpoints/:checkpointId/images", h.uploadImage)
	owned.POST("/:id/reviews", h.createReview)
	owned.POST("/:id/comments", h.createComment)

	rg.DELETE("/reviews/:reviewId", authMW, h.deleteReview)
	rg.DELETE("/comments/:commentId", authMW, h.deleteComment)
}

func (h *Handler) list(c *gin.Context) {
	trips, err := h.svc.ListTrips(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, trips)
}

func (h *Handler) get(c *gin.Context) {
	trip, err := h.svc.GetTrip(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		respond(c, err)
		return
	}
	response.OK(c, trip)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateTripDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	trip, err := h.svc.CreateTrip(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		respond(c, err)
		return
	}
	response.Created(c, trip)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateTripDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	trip, err := h.svc.UpdateTrip(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), &dto)
	if err != nil {
		respond(c, err)
		return
	}
	response.OK(c, trip)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.DeleteTrip(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		respond(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) addCheckpoint(c *gin.Context) {
	var dto CreateCheckpointDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cp, err := h.svc.AddCheckpoint(middleware.CurrentUserID(c), c.Param("id"), &dto)
	if err != nil {
		respond(c, err)
		return
	}
	response.Created(c, cp)
}

func (h *Handler) uploadImage(c *gin.Context) {
	var dto UploadImageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	image, err := h.svc.UploadCheckpointImage(
		c.Request.Context(),
		middleware.CurrentUserID(c),
		c.Param("id"),
		c.Param("checkpointId"),
		&dto,
	)
	if err != nil {
		respond(c, err)
		return
	}
	response.Created(c, image)
}

func (h *Handler) createReview(c *gin.Context) {
	var dto CreateReviewDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	review, err := h.svc.CreateReview(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), &dto)
	if err != nil {
		respond(c, err)
		return
	}
	response.Created(c, review)
}

func (h *Handler) createComment(c *gin.Context) {
	var dto CreateCommentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	comment, err := h.svc.CreateComment(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), &dto)
	if err != nil {
		respond(c, err)
		return
	}
	response.Created(c, comment)
}

func (h *Handler) listReviews(c *gin.Context) {
	reviews, err := h.svc.ListReviews(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, reviews)
}

func (h *Handler) listComments(c *gin.Context) {
	comments, err := h.svc.ListComments(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, comments)
}

func (h *Handler) deleteReview(c *gin.Context) {
	if err := h.svc.DeleteReview(c.Request.Context(), middleware.CurrentUserID(c), c.Param("reviewId")); err != nil {
		respond(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) deleteComment(c *gin.Context) {
	if err := h.svc.DeleteComment(c.Request.Context(), middleware.CurrentUserID(c), c.Param("commentId")); err != nil {
		respond(c, err)
		return
	}
	response.NoContent(c)
}

func respond(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c)
		return
	}
	response.InternalError(c, err)
}
