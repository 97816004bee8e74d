package app

import (
	"bimbel_asn_backend/docs"
	"bimbel_asn_backend/internal/config"
	"bimbel_asn_backend/internal/middleware"
	"bimbel_asn_backend/internal/model"
	"bimbel_asn_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/me", c.auth.Me)

		authGroup.POST("/sessions", c.session.Create)
		authGroup.GET("/sessions", c.session.History)
		authGroup.POST("/sessions/:id/review", c.session.CreateReview)
		authGroup.POST("/sessions/:id/start", c.session.Start)
		authGroup.GET("/sessions/:id/questions", c.session.Questions)
		authGroup.POST("/sessions/:id/answers", c.session.Answer)
		authGroup.POST("/sessions/:id/complete", c.session.Complete)
		authGroup.POST("/sessions/:id/abandon", c.session.Abandon)
		authGroup.GET("/sessions/:id/results", c.session.Results)
		authGroup.POST("/sessions/:id/export", c.session.ExportPDF)

		authGroup.GET("/questions/availability", c.session.Availability)

		authGroup.GET("/progress", c.progress.Get)
		authGroup.GET("/progress/stats", c.progress.Stats)
		authGroup.POST("/progress/rebuild", c.progress.Rebuild)
	}

	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.RoleAdmin))
	{
		admin.POST("/questions", c.question.Create)
		admin.GET("/questions", c.question.List)
		admin.POST("/questions/import", c.question.Import)
		admin.POST("/questions/:id/retire", c.question.Retire)
		admin.POST("/questions/:id/restore", c.question.Restore)
		admin.GET("/questions/quality-report", c.question.QualityReport)
		admin.POST("/questions/quality-scan", c.question.QualityScan)
		admin.PUT("/users/:id/tier", c.auth.SetTier)
	}
}
