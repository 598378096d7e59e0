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
	"go.uber.org/zap"

	"github.com/noah-isme/grades-calculator-api/internal/grading"
	"github.com/noah-isme/grades-calculator-api/internal/handler"
	"github.com/noah-isme/grades-calculator-api/internal/repository"
	"github.com/noah-isme/grades-calculator-api/internal/service"
	"github.com/noah-isme/grades-calculator-api/pkg/cache"
	"github.com/noah-isme/grades-calculator-api/pkg/config"
	"github.com/noah-isme/grades-calculator-api/pkg/database"
	"github.com/noah-isme/grades-calculator-api/pkg/identity"
	"github.com/noah-isme/grades-calculator-api/pkg/jobs"
	"github.com/noah-isme/grades-calculator-api/pkg/logger"
	"github.com/noah-isme/grades-calculator-api/pkg/scheduler"
)

// @title Grades Calculator API
// @version 1.0.0
// @description Weighted grade tracking for students: courses, grading schemes, grades and summaries.
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

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database unavailable", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, summary cache disabled", zap.Error(err))
		redisClient = nil
	}

	catalog, err := grading.NewCatalog(cfg.Grading.Components)
	if err != nil {
		logr.Fatal("invalid GRADING_COMPONENTS", zap.Error(err))
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "grades", logr)
	defer cacheRepo.Close() //nolint:errcheck

	var provider service.IdentityProvider
	if client := identity.New(cfg.Identity); client != nil {
		provider = client
		logr.Info("using hosted identity provider", zap.String("url", cfg.Identity.URL))
	}

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Summary.CacheTTL, logr, cfg.Summary.CacheEnabled && redisClient != nil)
	authSvc := service.NewAuthService(userRepo, provider, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, logr)
	courseSvc := service.NewCourseService(courseRepo, cacheSvc, metrics, catalog, validate, logr)
	summarySvc := service.NewSummaryService(courseRepo, gradeRepo, studentRepo, cacheSvc, metrics, logr, service.SummaryServiceConfig{
		Concurrency: cfg.Summary.Concurrency,
		CacheTTL:    cfg.Summary.CacheTTL,
	})

	refreshQueue := jobs.NewQueue("summary-refresh", summarySvc.HandleRefreshJob, jobs.QueueConfig{
		Workers:    cfg.Summary.Workers,
		MaxRetries: 1,
		RetryDelay: time.Second,
		Logger:     logr,
	})
	refreshQueue.Start(ctx)
	defer refreshQueue.Stop()

	gradeSvc := service.NewGradeService(gradeRepo, courseRepo, cacheSvc, refreshQueue, metrics, validate, logr)

	sched := scheduler.New(logr, time.Minute)
	if err := sched.Register("refresh-token-cleanup", cfg.Maintenance.TokenCleanupSchedule, authSvc.CleanupTokens); err != nil {
		logr.Fatal("invalid TOKEN_CLEANUP_SCHEDULE", zap.Error(err))
	}
	sched.Start()

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}

	router := newRouter(cfg, logr, routeDeps{
		auth:     authSvc,
		audit:    userRepo,
		metrics:  metrics,
		authH:    handler.NewAuthHandler(authSvc),
		studentH: handler.NewStudentHandler(studentSvc),
		courseH:  handler.NewCourseHandler(courseSvc),
		gradeH:   handler.NewGradeHandler(gradeSvc),
		summaryH: handler.NewSummaryHandler(summarySvc),
		metricsH: handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("server forced to shutdown", zap.Error(err))
	}
	sched.Stop(shutdownCtx)
}
