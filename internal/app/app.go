package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/config"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/database"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/integrations"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/middleware"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/models"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/modules/moderation"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/modules/webhook"
	jwtpkg "github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/jwt"
	pkgredis "github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/redis"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/retry"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/taskqueue"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies. Everything is constructed once
// here and injected; there is no ambient global state.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	logger *zap.Logger
	queue  *taskqueue.Service
	cancel context.CancelFunc
}

// New initializes the application: config → DB → Redis → storage →
// integrations → queue workers → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if secret := strings.TrimSpace(cfg.JWTSecret); secret != "" {
		jwtpkg.SetSecret(secret)
	} else {
		logger.Warn("jwt_secret is empty, using built-in default secret")
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	registry := integrations.NewRegistry(cfg.Providers, rc, logger)

	queue := taskqueue.NewService(rc, logger, cfg.Queue.Workers, retry.Policy{
		Tries:   cfg.Queue.Tries,
		Backoff: time.Duration(cfg.Queue.BackoffSeconds) * time.Second,
	})

	hookSvc := webhook.NewService(db, cfg.Webhook, logger)

	classifier := moderation.NewClassifier(cfg.Moderation, store, logger)
	pipeline := moderation.NewPipeline(db, classifier, store, cfg.Moderation.Threshold, logger)
	pipeline.OnFlagged = func(ctx context.Context, kind moderation.TargetKind, id string, results models.ModerationResults) {
		hookSvc.Trigger(ctx, webhook.EventModerationFlagged, gin.H{
			"kind":    kind,
			"id":      id,
			"results": results,
		})
	}
	pipeline.Register(queue)

	ctx, cancel := context.WithCancel(context.Background())
	go queue.Run(ctx)

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	app := &App{
		cfg:    cfg,
		router: router,
		db:     db,
		logger: logger,
		queue:  queue,
		cancel: cancel,
	}
	app.registerRoutes(rc, registry, hookSvc)

	return app, nil
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "x-idempotence"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	return corsConfig
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops the queue workers. Call before shutting the HTTP server
// down so in-flight jobs drain while the listener closes.
func (a *App) Shutdown() { a.cancel() }
