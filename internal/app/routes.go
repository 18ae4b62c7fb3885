package app

import (
	"github.com/gin-gonic/gin"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/integrations"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/middleware"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/modules/travel"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/modules/trips"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/modules/user"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/modules/webhook"
	pkgredis "github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/redis"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/response"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(rc *pkgredis.Client, registry *integrations.Registry, hookSvc *webhook.Service) {
	r := a.router
	authMW := middleware.Auth()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group(apiPrefix)
	api.Use(middleware.Idempotence(rc.Raw()))

	userSvc := user.NewService(a.db, a.logger)
	user.NewHandler(userSvc).RegisterRoutes(api, authMW)

	webhook.NewHandler(hookSvc).RegisterRoutes(api, authMW)

	tripSvc := trips.NewService(a.db, a.queue, hookSvc, a.logger)
	trips.NewHandler(tripSvc).RegisterRoutes(api, authMW)

	flightsSvc := travel.NewFlightsService(registry, a.logger)
	placesSvc := travel.NewPlacesService(registry, a.logger)
	travel.NewHandler(flightsSvc, placesSvc).RegisterRoutes(api)
}
