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

	_ "github.com/noah-isme/sma-grading-api/api/swagger"
	"github.com/noah-isme/sma-grading-api/internal/handler"
	"github.com/noah-isme/sma-grading-api/internal/middleware"
	"github.com/noah-isme/sma-grading-api/internal/models"
	"github.com/noah-isme/sma-grading-api/internal/repository"
	"github.com/noah-isme/sma-grading-api/internal/service"
	"github.com/noah-isme/sma-grading-api/pkg/cache"
	"github.com/noah-isme/sma-grading-api/pkg/config"
	"github.com/noah-isme/sma-grading-api/pkg/database"
	"github.com/noah-isme/sma-grading-api/pkg/jobs"
	"github.com/noah-isme/sma-grading-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-grading-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-grading-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-grading-api/pkg/storage"
)

// @title SMA Grading API
// @version 1.0.0
// @description Weighted grade computation, class reports, attendance and dashboards
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	redisRepo := (*repository.CacheRepository)(nil)
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		redisRepo = repository.NewCacheRepository(client)
		cacheRepo = redisRepo
		defer redisRepo.Close() //nolint:errcheck
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Grading.CacheTTL, logr, cacheRepo != nil)

	assessments := repository.NewAssessmentRepository(db)
	scores := repository.NewScoreRepository(db)
	students := repository.NewStudentRepository(db)
	classes := repository.NewClassRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	reportRepo := repository.NewReportRepository(db)

	validate := validator.New()
	gradeSvc := service.NewGradeService(service.GradeServiceParams{
		Assessments: assessments,
		Scores:      scores,
		Students:    students,
		Classes:     classes,
		Cache:       cacheSvc,
		Metrics:     metrics,
		Validator:   validate,
		Logger:      logr,
		Config: service.GradeServiceConfig{
			PassThreshold: cfg.Grading.PassThreshold,
			CacheTTL:      cfg.Grading.CacheTTL,
			Workers:       cfg.Grading.ReportWorkers,
		},
	})
	attendanceSvc := service.NewAttendanceService(attendanceRepo, students, classes, cacheSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Classes:    classes,
		Grades:     gradeSvc,
		Attendance: attendanceSvc,
		Cache:      cacheSvc,
		Logger:     logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:      cfg.Dashboard.CacheTTL,
			LowAttendance: cfg.Dashboard.LowAttendance,
			LowPassRate:   cfg.Dashboard.LowPassRate,
			PassThreshold: cfg.Grading.PassThreshold,
			Workers:       cfg.Grading.ReportWorkers,
		},
	})
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)

	var reportHandler *handler.ReportHandler
	if cfg.Reports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Fatal("failed to prepare report storage", zap.Error(err))
		}
		exportSvc := service.NewExportService(service.ExportServiceParams{
			Classes:    classes,
			Grades:     gradeSvc,
			Attendance: attendanceSvc,
			Storage:    fileStore,
			Signer:     storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL),
			Logger:     logr,
			Config:     service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL},
		})
		worker := service.NewReportWorker(reportRepo, exportSvc, metrics, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:     cfg.Reports.WorkerConcurrency,
			MaxRetries:  cfg.Reports.WorkerRetries,
			RetryDelay:  2 * time.Second,
			Logger:      logr,
			OnExhausted: worker.Exhausted,
		})
		queue.Start(ctx)
		defer queue.Stop()
		metrics.TrackQueueDepth("reports", queue.Depth)

		reportSvc := service.NewReportService(reportRepo, classes, queue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
		reportHandler = handler.NewReportHandler(reportSvc, logr)
	}

	metricsHandler := handler.NewMetricsHandler(metrics, func(c *gin.Context) error {
		if err := db.PingContext(c.Request.Context()); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if redisRepo != nil {
			if err := redisRepo.Ping(c.Request.Context()); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	})
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if reportHandler != nil {
		api.GET("/export/:token", reportHandler.DownloadReport)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(tokenSvc))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	staffOrSelf := middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), middleware.Self)

	secured.POST("/assessments", staff, gradeHandler.CreateAssessment)
	secured.GET("/classes/:id/assessments", staff, gradeHandler.ListAssessments)
	secured.POST("/scores", staff, gradeHandler.RecordScore)
	secured.POST("/scores/bulk", staff, gradeHandler.BulkScores)
	secured.GET("/classes/:id/students/:studentId/final-grade", staffOrSelf, gradeHandler.FinalGrade)
	secured.GET("/students/:id/report-card", staffOrSelf, gradeHandler.ReportCard)
	secured.GET("/classes/:id/grade-report", staff, gradeHandler.GradeReport)

	secured.POST("/attendance", staff, attendanceHandler.Record)
	secured.GET("/classes/:id/attendance", staff, attendanceHandler.ClassStats)
	secured.GET("/students/:id/attendance", staffOrSelf, attendanceHandler.StudentStats)

	if cfg.Dashboard.Enabled {
		secured.GET("/dashboard", staff, dashboardHandler.Overview)
		secured.GET("/dashboard/classes/:id", staff, dashboardHandler.Class)
	}

	if reportHandler != nil {
		secured.POST("/reports", staff, reportHandler.GenerateReport)
		secured.GET("/reports/:id", staff, reportHandler.ReportStatus)
	}

	secured.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Summary)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
