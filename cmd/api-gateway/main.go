package main

import (
	"context"
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

	_ "github.com/noah-isme/enroll-portal-api/api/swagger"
	"github.com/noah-isme/enroll-portal-api/internal/handler"
	"github.com/noah-isme/enroll-portal-api/internal/middleware"
	"github.com/noah-isme/enroll-portal-api/internal/models"
	"github.com/noah-isme/enroll-portal-api/internal/psgc"
	"github.com/noah-isme/enroll-portal-api/internal/repository"
	"github.com/noah-isme/enroll-portal-api/internal/service"
	"github.com/noah-isme/enroll-portal-api/pkg/cache"
	"github.com/noah-isme/enroll-portal-api/pkg/config"
	"github.com/noah-isme/enroll-portal-api/pkg/database"
	"github.com/noah-isme/enroll-portal-api/pkg/imaging"
	"github.com/noah-isme/enroll-portal-api/pkg/jobs"
	"github.com/noah-isme/enroll-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/enroll-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/enroll-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/enroll-portal-api/pkg/storage"
)

// @title Enrollment Portal API
// @version 1.0.0
// @description School enrollment portal: three-step enrollment wizard, PSGC address lookups, document uploads and staff review.
// @BasePath /api
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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	documentStorage, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	// Repositories.
	users := repository.NewUserRepository(db)
	registrations := repository.NewRegistrationRepository(db)
	students := repository.NewStudentRepository(db)
	classrooms := repository.NewClassroomRepository(db)
	announcements := repository.NewAnnouncementRepository(db)
	drafts := repository.NewDraftRepository(redisClient, cfg.Drafts.TTL, logr)
	resetCodes := repository.NewResetCodeRepository(redisClient, cfg.Reset.CodeTTL)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(users, resetCodes, service.NewLogMailer(logr), validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	enrollmentSvc := service.NewEnrollmentService(drafts, registrations, cacheRepo, metricsSvc, validate, logr, cfg.Portal.PendingCountTTL)
	psgcClient := psgc.NewClient(cfg.PSGC.BaseURL, cfg.PSGC.Timeout, redisClient, cfg.PSGC.CacheTTL, logr)
	addressSvc := service.NewAddressService(psgcClient, metricsSvc, logr)
	compressor := imaging.NewCompressor(cfg.Uploads.MaxDimensionPx, cfg.Uploads.CompressTargetBytes)
	previewSigner := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)
	documentSvc := service.NewDocumentService(drafts, documentStorage, previewSigner, compressor, metricsSvc, logr, cfg.Uploads.MaxPhotoSizeBytes)
	studentSvc := service.NewStudentService(students, registrations, users, validate, logr)
	portalSvc := service.NewPortalService(classrooms, announcements, cacheRepo, logr, cfg.Portal.PendingCountTTL)

	var exportSvc *service.ExportService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		exportSigner := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(registrations, exportStorage, exportSigner, cacheRepo, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, nil, nil)
		exportQueue = jobs.NewQueue("exports", exportSvc.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportQueue.Start(ctx)
		defer exportQueue.Stop()
		exportSvc.Bind(exportQueue)
		go cleanupLoop(ctx, exportSvc, cfg.Exports.CleanupInterval, logr.Sugar())
	}

	// Handlers.
	cookieTTL := int(cfg.JWT.Expiration.Seconds())
	authHandler := handler.NewAuthHandler(authSvc, cfg.JWT.CookieName, cookieTTL)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, documentSvc, int(cfg.Drafts.TTL.Seconds()))
	addressHandler := handler.NewAddressHandler(addressSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	portalHandler := handler.NewPortalHandler(portalSvc)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public auth and portal reads.
	api.POST("/login", authHandler.Login)
	api.POST("/logout", authHandler.Logout)
	api.GET("/urlAuthentication", middleware.OptionalJWT(authSvc, cfg.JWT.CookieName), authHandler.Probe)
	api.POST("/requestCode", authHandler.RequestCode)
	api.POST("/verifyCode", authHandler.VerifyCode)
	api.POST("/changePassword", authHandler.ResetPassword)
	api.GET("/getClassrooms", portalHandler.Classrooms)
	api.GET("/getHomeAnnouncement", portalHandler.Announcements)

	// The anonymous enrollment wizard.
	api.POST("/enrollment/terms", enrollmentHandler.AcceptTerms)
	api.GET("/enrollment", enrollmentHandler.Draft)
	api.POST("/enrollment", middleware.OptionalJWT(authSvc, cfg.JWT.CookieName), enrollmentHandler.SaveStep)
	api.POST("/enrollment/documents/:kind", enrollmentHandler.UploadDocument)
	api.DELETE("/enrollment/documents/:kind", enrollmentHandler.RemoveDocument)
	api.POST("/enrollment/submit", middleware.OptionalJWT(authSvc, cfg.JWT.CookieName), enrollmentHandler.Submit)
	api.GET("/enrollment/preview/:token", enrollmentHandler.Preview)

	// Address cascades.
	api.GET("/address/regions", addressHandler.Regions)
	api.GET("/address/provinces", addressHandler.Provinces)
	api.GET("/address/municipalities", addressHandler.Municipalities)
	api.GET("/address/barangays", addressHandler.Barangays)
	api.GET("/address/zip", addressHandler.Zip)

	// Signed-in routes.
	authed := api.Group("", middleware.JWT(authSvc, cfg.JWT.CookieName))
	authed.PATCH("/change_password", authHandler.ChangePassword)
	authed.GET("/getStudentProfile", middleware.RequireRoles(models.RoleStudent, models.RoleStaff, models.RoleAdmin), studentHandler.Profile)

	staff := authed.Group("", middleware.RequireRoles(models.RoleStaff, models.RoleAdmin))
	staff.GET("/getStudents", studentHandler.List)
	staff.GET("/getApplicants", studentHandler.Applicants)
	staff.GET("/getAllEmails", studentHandler.Emails)
	staff.PATCH("/student_update/:id", studentHandler.Update)
	staff.PATCH("/approveApplicant", enrollmentHandler.Approve)
	staff.PATCH("/rejectApplicant", enrollmentHandler.Reject)
	staff.GET("/applicants/pendingCount", enrollmentHandler.PendingCount)

	if exportSvc != nil {
		exportHandler := handler.NewExportHandler(exportSvc)
		staff.GET("/registrations/:enrollmentId/form", exportHandler.PrintForm)
		staff.POST("/export", exportHandler.Enqueue)
		staff.GET("/export/jobs/:id", exportHandler.Status)
		api.GET("/export/:token", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func cleanupLoop(ctx context.Context, exports *service.ExportService, interval time.Duration, log *zap.SugaredLogger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(0)
			if err != nil {
				log.Warnw("export cleanup failed", "error", err)
				continue
			}
			if len(removed) > 0 {
				log.Infow("expired exports removed", "count", len(removed))
			}
		}
	}
}
