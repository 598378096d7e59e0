package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/grades-calculator-api/api/swagger"
	"github.com/noah-isme/grades-calculator-api/internal/handler"
	"github.com/noah-isme/grades-calculator-api/internal/middleware"
	"github.com/noah-isme/grades-calculator-api/internal/models"
	"github.com/noah-isme/grades-calculator-api/internal/service"
	"github.com/noah-isme/grades-calculator-api/pkg/config"
	"github.com/noah-isme/grades-calculator-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/grades-calculator-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/grades-calculator-api/pkg/middleware/requestid"
)

type routeDeps struct {
	auth    middleware.TokenValidator
	audit   middleware.AuditRecorder
	metrics *service.MetricsService

	authH    *handler.AuthHandler
	studentH *handler.StudentHandler
	courseH  *handler.CourseHandler
	gradeH   *handler.GradeHandler
	summaryH *handler.SummaryHandler
	metricsH *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, d routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics))

	r.GET("/health", d.metricsH.Health)
	r.GET("/ready", d.metricsH.Ready)
	r.GET("/metrics", d.metricsH.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	auth.POST("/signup", d.authH.SignUp)
	auth.POST("/login", d.authH.Login)
	auth.POST("/refresh", d.authH.Refresh)
	auth.POST("/logout", middleware.JWT(d.auth), d.authH.Logout)

	secured := api.Group("")
	secured.Use(middleware.JWT(d.auth))

	students := secured.Group("/students")
	students.GET("/me", d.studentH.Me)
	students.GET("", middleware.RequireRoles(models.RoleAdmin), d.studentH.List)
	students.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf), d.studentH.Get)
	students.GET("/:id/summaries", middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf), d.summaryH.ForStudent)

	secured.POST("/schemes/validate", d.courseH.ValidateScheme)

	courses := secured.Group("/courses")
	courses.GET("", d.courseH.List)
	courses.GET("/names", d.courseH.Names)
	courses.POST("", d.courseH.Create)
	courses.GET("/:id", d.courseH.Get)
	courses.PUT("/:id/scheme", middleware.Audit(d.audit, logr, models.AuditActionSchemeReplace, "course"), d.courseH.ReplaceScheme)
	courses.DELETE("/:id", middleware.Audit(d.audit, logr, models.AuditActionCourseDelete, "course"), d.courseH.Delete)
	courses.GET("/:id/grades", d.gradeH.ListByCourse)
	courses.GET("/:id/summary", d.summaryH.Course)

	grades := secured.Group("/grades")
	grades.POST("", d.gradeH.Record)
	grades.DELETE("/:id", d.gradeH.Delete)

	summaries := secured.Group("/summaries")
	summaries.GET("", d.summaryH.Mine)
	summaries.GET("/export", d.summaryH.Export)

	return r
}
