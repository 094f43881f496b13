package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/school-community-api/api/swagger"
	"github.com/noah-isme/school-community-api/internal/handler"
	"github.com/noah-isme/school-community-api/internal/middleware"
	"github.com/noah-isme/school-community-api/internal/models"
	"github.com/noah-isme/school-community-api/internal/repository"
	"github.com/noah-isme/school-community-api/internal/service"
	"github.com/noah-isme/school-community-api/pkg/cache"
	"github.com/noah-isme/school-community-api/pkg/config"
	"github.com/noah-isme/school-community-api/pkg/database"
	"github.com/noah-isme/school-community-api/pkg/export"
	"github.com/noah-isme/school-community-api/pkg/jobs"
	"github.com/noah-isme/school-community-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-community-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-community-api/pkg/middleware/requestid"
	"github.com/noah-isme/school-community-api/pkg/storage"
)

// @title School Community API
// @version 0.1.0
// @description Trust and access-control engine for the school community platform
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Leaderboard.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, leaderboard cache disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Leaderboard.CacheTTL, logr, true)
		}
	}

	scopeRepo := repository.NewScopeRepository(db)
	keyRepo := repository.NewDigitalKeyRepository(db)
	userRepo := repository.NewUserRepository(db)
	successionRepo := repository.NewSuccessionRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	postRepo := repository.NewPostRepository(db)
	violationRepo := repository.NewViolationRepository(db)
	eventRepo := repository.NewEventRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	var classifier service.ContentClassifier
	if cfg.Moderation.Enabled && cfg.Moderation.ClassifierURL != "" {
		classifier = service.NewHTTPClassifier(cfg.Moderation.ClassifierURL, cfg.Moderation.Timeout)
	}

	scopeSvc := service.NewScopeService(scopeRepo, validate, logr)
	accessSvc := service.NewAccessService(scopeRepo, keyRepo, logr)
	adminSvc := service.NewAdminService(userRepo, successionRepo, validate, logr)
	reputationSvc := service.NewReputationService(userRepo, postRepo, eventRepo, logr)
	credibilitySvc := service.NewCredibilityService(postRepo, userRepo, validate, logr)
	moderationSvc := service.NewModerationService(classifier, violationRepo, credibilitySvc, metricsSvc, logr)
	postSvc := service.NewPostService(postRepo, accessSvc, moderationSvc, reputationSvc, validate, logr)
	eventSvc := service.NewEventService(eventRepo, accessSvc, reputationSvc, logr)
	ticketSvc := service.NewTicketService(ticketRepo, userRepo, validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	leaderboardSvc := service.NewLeaderboardService(userRepo, cacheSvc, logr, service.LeaderboardServiceConfig{
		CacheTTL: cfg.Leaderboard.CacheTTL,
		Limit:    cfg.Leaderboard.Limit,
	})

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	exportSigner := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	var exportSvc *service.ExportService
	exportQueue := jobs.NewQueue("exports", func(ctx context.Context, job jobs.Job) error {
		return exportSvc.Process(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	exportSvc = service.NewExportService(exportJobRepo, adminSvc, exportQueue, exportStore, exportSigner,
		service.ExportServiceConfig{APIPrefix: cfg.APIPrefix}, logr)

	exportQueue.Start(context.Background())
	defer exportQueue.Stop()
	if err := exportSvc.RecoverQueued(context.Background(), 0); err != nil {
		logr.Sugar().Warnw("failed to recover pending export jobs", "error", err)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	scopeHandler := handler.NewScopeHandler(scopeSvc)
	accessHandler := handler.NewAccessHandler(accessSvc)
	adminHandler := handler.NewAdminHandler(adminSvc, export.NewCSVExporter(), export.NewPDFExporter())
	ticketHandler := handler.NewTicketHandler(ticketSvc)
	postHandler := handler.NewPostHandler(postSvc, credibilitySvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	moderationHandler := handler.NewModerationHandler(moderationSvc)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/register", ticketHandler.Claim)

	api.GET("/scopes", middleware.OptionalJWT(authSvc), scopeHandler.List)
	api.GET("/scopes/:id", middleware.OptionalJWT(authSvc), scopeHandler.Get)
	api.GET("/scopes/:id/access", middleware.OptionalJWT(authSvc), accessHandler.Check)
	api.GET("/scopes/:id/posts", middleware.OptionalJWT(authSvc), postHandler.ListByScope)
	api.GET("/leaderboard", leaderboardHandler.Top)
	api.GET("/export/:token", exportHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.POST("/scopes/:id/unlock", accessHandler.Unlock)
		authed.POST("/posts", postHandler.Create)
		authed.PUT("/posts/:id/rating", postHandler.Rate)
		authed.POST("/events/:id/rsvp", eventHandler.ToggleRSVP)
		authed.GET("/users/:id/violations", moderationHandler.History)
	}

	admin := api.Group("")
	admin.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/scopes", scopeHandler.Create)
		admin.DELETE("/scopes/:id", scopeHandler.Delete)
		admin.POST("/admin/transfer", adminHandler.Transfer)
		admin.POST("/admin/promote", adminHandler.Promote)
		admin.GET("/admin/succession", adminHandler.AuditTrail)
		admin.GET("/admin/succession/export", adminHandler.ExportAudit)
		admin.POST("/admin/succession/export-jobs", exportHandler.CreateJob)
		admin.GET("/admin/succession/export-jobs/:id", exportHandler.Status)
		admin.GET("/admin/stats", metricsHandler.Stats)
		admin.POST("/tickets", ticketHandler.Issue)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
