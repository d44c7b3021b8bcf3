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

	_ "github.com/pustak-labs/library-admin-api/api/swagger"
	"github.com/pustak-labs/library-admin-api/internal/handler"
	"github.com/pustak-labs/library-admin-api/internal/middleware"
	"github.com/pustak-labs/library-admin-api/internal/repository"
	"github.com/pustak-labs/library-admin-api/internal/service"
	"github.com/pustak-labs/library-admin-api/pkg/config"
	"github.com/pustak-labs/library-admin-api/pkg/database"
	"github.com/pustak-labs/library-admin-api/pkg/jobs"
	"github.com/pustak-labs/library-admin-api/pkg/logger"
	corsmiddleware "github.com/pustak-labs/library-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/pustak-labs/library-admin-api/pkg/middleware/requestid"
	"github.com/pustak-labs/library-admin-api/pkg/storage"
)

const sweepInterval = 12 * time.Hour

// @title Library Admin API
// @version 1.0.0
// @description Reading room student administration
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

	db, err := database.NewSQLite(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to open database", "path", cfg.Database.Path, "error", err)
	}
	defer db.Close() //nolint:errcheck

	uploads, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare uploads directory", "dir", cfg.Uploads.Dir, "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	validate := validator.New()

	credentials, err := service.NewStaticCredentials(cfg.Auth.AdminUser, cfg.Auth.AdminPassword)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare admin credentials", "error", err)
	}

	studentRepo := repository.NewStudentRepository(db)

	attachmentSvc := service.NewAttachmentService(uploads, signer, logr, service.AttachmentServiceConfig{
		AllowedExts: cfg.Uploads.AllowedExts,
		MaxFileSize: cfg.Uploads.MaxFileSizeBytes,
	})
	studentSvc := service.NewStudentService(studentRepo, attachmentSvc, validate, logr, service.StudentServiceConfig{
		StrictFees: cfg.Students.StrictFees,
	})
	reportSvc := service.NewReportService(studentRepo, logr)
	exportSvc := service.NewExportService(studentSvc, logr)
	authSvc := service.NewAuthService(credentials, validate, logr, service.AuthServiceConfig{
		AccessTokenSecret: cfg.Auth.JWTSecret,
		AccessTokenExpiry: cfg.Auth.TokenExpiry,
		Issuer:            cfg.Auth.Issuer,
	})
	maintenanceSvc := service.NewMaintenanceService(studentRepo, uploads, logr, service.MaintenanceServiceConfig{})
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, exportSvc)
	documentHandler := handler.NewDocumentHandler(studentSvc, attachmentSvc, cfg.APIPrefix)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweepQueue := jobs.NewQueue("maintenance", func(ctx context.Context, job jobs.Job) error {
		return maintenanceSvc.SweepOrphans(ctx)
	}, jobs.QueueConfig{Workers: 1, Logger: logr})
	sweepQueue.Start(ctx)
	defer sweepQueue.Stop()
	go scheduleSweeps(ctx, sweepQueue, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unreachable"})
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

	// Download links carry their own HMAC signature, so no JWT here.
	api.GET("/documents/download", documentHandler.Download)

	protected := api.Group("", middleware.JWT(authSvc))
	protected.GET("/auth/me", authHandler.Me)
	protected.GET("/dashboard", reportHandler.Dashboard)
	protected.GET("/reports", reportHandler.Reports)
	protected.GET("/students", studentHandler.List)
	protected.GET("/students/removed", studentHandler.Removed)
	protected.GET("/students/export", studentHandler.Export)
	protected.GET("/students/:id", studentHandler.Get)
	protected.POST("/students", studentHandler.Upsert)
	protected.PUT("/students/:id", studentHandler.Edit)
	protected.DELETE("/students/:id", studentHandler.SoftDelete)
	protected.POST("/students/:id/restore", studentHandler.Restore)
	protected.DELETE("/students/:id/permanent", studentHandler.PermanentDelete)
	protected.GET("/students/:id/document", documentHandler.Link)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
}

// scheduleSweeps enqueues an orphan sweep at boot and on a fixed
// interval afterwards.
func scheduleSweeps(ctx context.Context, queue *jobs.Queue, logr *zap.Logger) {
	enqueue := func() {
		job := jobs.Job{ID: time.Now().UTC().Format(time.RFC3339), Type: "orphan-sweep"}
		if err := queue.Enqueue(job); err != nil {
			logr.Sugar().Warnw("failed to enqueue sweep", "error", err)
		}
	}

	enqueue()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			enqueue()
		}
	}
}
