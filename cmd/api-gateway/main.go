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
	"go.uber.org/zap"

	_ "github.com/noah-isme/usecase-tracker-api/api/swagger"
	"github.com/noah-isme/usecase-tracker-api/internal/handler"
	"github.com/noah-isme/usecase-tracker-api/internal/importer"
	"github.com/noah-isme/usecase-tracker-api/internal/middleware"
	"github.com/noah-isme/usecase-tracker-api/internal/models"
	"github.com/noah-isme/usecase-tracker-api/internal/repository"
	"github.com/noah-isme/usecase-tracker-api/internal/service"
	"github.com/noah-isme/usecase-tracker-api/pkg/cache"
	"github.com/noah-isme/usecase-tracker-api/pkg/config"
	"github.com/noah-isme/usecase-tracker-api/pkg/database"
	"github.com/noah-isme/usecase-tracker-api/pkg/jobs"
	"github.com/noah-isme/usecase-tracker-api/pkg/llm"
	"github.com/noah-isme/usecase-tracker-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/usecase-tracker-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/usecase-tracker-api/pkg/middleware/requestid"
	"github.com/noah-isme/usecase-tracker-api/pkg/storage"
)

// @title Use Case Tracker API
// @version 1.0.0
// @description Multi-tenant tracker for AI use cases, their approvals, test cases and documents
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && cacheRepo != nil)

	fileStorage, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare document storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)

	analyzerOpts := []importer.Option{importer.WithRecorder(metrics), importer.WithLogger(logr)}
	factory, err := llm.NewFromConfig(cfg.AI, logr)
	if err != nil {
		logr.Warn("AI provider misconfigured, imports use local mapping only", zap.Error(err))
	}
	if factory != nil {
		analyzerOpts = append(analyzerOpts, importer.WithRemote(importer.NewRemoteAnalyzer(factory, cfg.Import.SampleRows, cfg.AI.Timeout)))
		logr.Info("remote import analysis enabled", zap.String("provider", cfg.AI.Provider))
	}
	analyzer := importer.NewAnalyzer(analyzerOpts...)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	useCaseRepo := repository.NewUseCaseRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	testCaseRepo := repository.NewTestCaseRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	activitySvc := service.NewActivityService(activityRepo, logr)
	activityQueue := jobs.NewQueue("activity", activitySvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Activity.Workers,
		MaxRetries: cfg.Activity.MaxRetries,
		RetryDelay: cfg.Activity.RetryDelay,
		Logger:     logr,
	})
	activitySvc.AttachQueue(activityQueue)
	activityQueue.Start(context.Background())

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	useCaseSvc := service.NewUseCaseService(useCaseRepo, activitySvc, cacheSvc, validate, logr)
	approvalSvc := service.NewApprovalService(useCaseRepo, approvalRepo, activitySvc, cacheSvc, metrics, validate, logr)
	testCaseSvc := service.NewTestCaseService(testCaseRepo, useCaseRepo, activitySvc, cacheSvc, metrics, validate, logr)
	importSvc := service.NewImportService(analyzer, useCaseRepo, testCaseSvc, logr, service.ImportServiceConfig{
		MaxRows:          cfg.Import.MaxRows,
		MaxFileSizeBytes: cfg.Import.MaxFileSizeBytes,
	})
	documentSvc := service.NewDocumentService(documentRepo, useCaseRepo, fileStorage, signer, activitySvc, validate, logr, service.DocumentServiceConfig{
		MaxFileSize:  cfg.Documents.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Documents.AllowedMIMEs,
		APIPrefix:    cfg.APIPrefix,
	})
	dashboardSvc := service.NewDashboardService(dashboardRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	useCaseHandler := handler.NewUseCaseHandler(useCaseSvc)
	approvalHandler := handler.NewApprovalHandler(approvalSvc)
	testCaseHandler := handler.NewTestCaseHandler(testCaseSvc)
	importHandler := handler.NewImportHandler(importSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
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
	api.POST("/auth/refresh", authHandler.Refresh)
	api.GET("/documents/:id/download", documentHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))
	secured.POST("/auth/logout", authHandler.Logout)
	secured.GET("/auth/me", authHandler.Me)

	secured.POST("/imports/analyze", importHandler.Analyze)
	secured.POST("/imports/parse", importHandler.Parse)

	useCases := secured.Group("/use-cases")
	useCases.GET("", useCaseHandler.List)
	useCases.POST("", middleware.RequireRoles(models.EditorRoles...), useCaseHandler.Create)
	useCases.GET("/:id", useCaseHandler.Get)
	useCases.PATCH("/:id", middleware.RequireRoles(models.EditorRoles...), useCaseHandler.Update)
	useCases.POST("/:id/archive", middleware.RequireRoles(models.RoleAdmin), useCaseHandler.Archive)

	useCases.POST("/:id/submit", approvalHandler.Submit)
	useCases.POST("/:id/approve", approvalHandler.Approve)
	useCases.POST("/:id/request-changes", approvalHandler.RequestChanges)
	useCases.GET("/:id/approvals", approvalHandler.List)

	useCases.GET("/:id/test-cases", testCaseHandler.List)
	useCases.POST("/:id/test-cases", testCaseHandler.Create)
	useCases.POST("/:id/test-cases/batch", testCaseHandler.BatchCreate)
	useCases.POST("/:id/test-cases/import", importHandler.Import)
	useCases.GET("/:id/test-cases/export", testCaseHandler.Export)
	useCases.PATCH("/:id/test-cases/:testCaseId", testCaseHandler.Update)
	useCases.DELETE("/:id/test-cases/:testCaseId", testCaseHandler.Delete)

	useCases.POST("/:id/documents", documentHandler.Upload)
	useCases.GET("/:id/documents", documentHandler.List)
	secured.GET("/documents/:id", documentHandler.Get)
	secured.DELETE("/documents/:id", documentHandler.Delete)

	secured.GET("/activity", activityHandler.List)
	secured.GET("/dashboard/summary", dashboardHandler.Summary)
	secured.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Summary)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	activityQueue.Stop()
}
