package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/desa-connect/aspirasi-api/api/swagger"
	"github.com/desa-connect/aspirasi-api/internal/assistant"
	"github.com/desa-connect/aspirasi-api/internal/handler"
	"github.com/desa-connect/aspirasi-api/internal/middleware"
	"github.com/desa-connect/aspirasi-api/internal/models"
	"github.com/desa-connect/aspirasi-api/internal/notifier"
	"github.com/desa-connect/aspirasi-api/internal/repository"
	"github.com/desa-connect/aspirasi-api/internal/service"
	"github.com/desa-connect/aspirasi-api/pkg/cache"
	"github.com/desa-connect/aspirasi-api/pkg/config"
	"github.com/desa-connect/aspirasi-api/pkg/database"
	"github.com/desa-connect/aspirasi-api/pkg/export"
	"github.com/desa-connect/aspirasi-api/pkg/jobs"
	"github.com/desa-connect/aspirasi-api/pkg/logger"
	corsmiddleware "github.com/desa-connect/aspirasi-api/pkg/middleware/cors"
	reqidmiddleware "github.com/desa-connect/aspirasi-api/pkg/middleware/requestid"
	"github.com/desa-connect/aspirasi-api/pkg/storage"
)

// @title Aspirasi Desa API
// @version 1.0.0
// @description Citizen reporting portal for village aspirations
// @BasePath /api/v1
// @schemes http https

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)
	blogRepo := repository.NewBlogRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services share one validator so custom rules register once each.
	validate := validator.New()

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "aspirasi-desa",
		AdminEmail:         cfg.Admin.Email,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	blogSvc := service.NewBlogService(blogRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(reportRepo, cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr)

	var notifSvc *service.NotificationService
	if cfg.Notifier.Enabled {
		sender := notifier.NewEmailJSClient(cfg.Notifier, cfg.BaseURL)
		notifSvc = service.NewNotificationService(notifRepo, sender, metricsSvc, jobs.QueueConfig{
			Workers:    cfg.Notifier.WorkerConcurrency,
			MaxRetries: cfg.Notifier.WorkerRetries,
			RetryDelay: cfg.Notifier.RetryDelay,
			Logger:     logr,
		}, logr)
		notifSvc.Start(ctx)
		defer notifSvc.Stop()
	} else {
		logr.Info("resolution emails disabled")
	}

	var reportSvc *service.ReportService
	if notifSvc != nil {
		reportSvc = service.NewReportService(reportRepo, userRepo, notifSvc, dashboardSvc, metricsSvc, validate, logr)
	} else {
		reportSvc = service.NewReportService(reportRepo, userRepo, nil, dashboardSvc, metricsSvc, validate, logr)
	}

	var uploadSvc *service.UploadService
	if cfg.Uploads.Endpoint != "" {
		store, err := storage.NewObjectStore(ctx, cfg.Uploads)
		if err != nil {
			logr.Sugar().Warnw("object storage unavailable, photo uploads disabled", "error", err)
			uploadSvc = service.NewUploadService(nil, cfg.Uploads.MaxFileSizeBytes, logr)
		} else {
			uploadSvc = service.NewUploadService(store, cfg.Uploads.MaxFileSizeBytes, logr)
		}
	} else {
		uploadSvc = service.NewUploadService(nil, cfg.Uploads.MaxFileSizeBytes, logr)
	}

	var assistantSvc *service.AssistantService
	if cfg.Assistant.Enabled && cfg.Assistant.APIKey != "" {
		assistantSvc = service.NewAssistantService(assistant.NewGeminiClient(cfg.Assistant), reportRepo, logr)
	} else {
		assistantSvc = service.NewAssistantService(nil, reportRepo, logr)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	reportHandler := handler.NewReportHandler(reportSvc, export.NewCSVExporter(), export.NewPDFExporter())
	blogHandler := handler.NewBlogHandler(blogSvc)
	userHandler := handler.NewUserHandler(userSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	assistantHandler := handler.NewAssistantHandler(assistantSvc)
	uploadHandler := handler.NewUploadHandler(uploadSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	// Public surfaces: village news, the report map and the portal stats.
	api.GET("/blog", middleware.OptionalJWT(authSvc), blogHandler.List)
	api.GET("/blog/:slug", blogHandler.GetBySlug)
	api.GET("/reports/markers", reportHandler.Markers)
	api.GET("/dashboard", dashboardHandler.Overview)
	api.POST("/assistant/chat", assistantHandler.Chat)

	reports := api.Group("/reports", middleware.JWT(authSvc))
	{
		reports.POST("", reportHandler.Create)
		reports.GET("", reportHandler.List)
		reports.GET("/:id", reportHandler.Get)
		reports.POST("/:id/comments", reportHandler.AddComment)
	}

	api.POST("/uploads/photos", middleware.JWT(authSvc), uploadHandler.UploadPhoto)

	admin := api.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.PATCH("/reports/:id/status", reportHandler.ChangeStatus)
		admin.DELETE("/reports/:id", reportHandler.Delete)
		admin.GET("/reports/export/csv", reportHandler.ExportCSV)
		admin.GET("/reports/export/pdf", reportHandler.ExportPDF)
		admin.GET("/assistant/reports/:id/summary", assistantHandler.Summarize)

		admin.GET("/admin/users", userHandler.List)
		admin.GET("/admin/users/:id", userHandler.Get)
		admin.PATCH("/admin/users/:id/active", userHandler.SetActive)

		admin.GET("/admin/blog/:id", blogHandler.Get)
		admin.POST("/admin/blog", blogHandler.Create)
		admin.PUT("/admin/blog/:id", blogHandler.Update)
		admin.DELETE("/admin/blog/:id", blogHandler.Delete)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
