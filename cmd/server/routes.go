package main

import (
	"github.com/gin-gonic/gin"
	"github.com/stockyard-ci/stockyard/internal/middleware"
	"github.com/stockyard-ci/stockyard/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS())
	r.SetHTMLTemplate(svc.templates)

	r.GET("/health", svc.health.CheckHealth)
	r.GET("/metrics", svc.metrics.Metrics)

	api := r.Group("/api")
	{
		// CI uploads
		upload := api.Group("/upload", svc.limiter.Middleware())
		{
			upload.POST("/cloc", svc.upload.LinesOfCode)
			upload.POST("/linesofcode", svc.upload.LinesOfCode)
			upload.POST("/codecoverage", svc.upload.CodeCoverage)
			upload.POST("/unittest", svc.upload.UnitTests)
			upload.POST("/imagecapture", svc.upload.ImageCaptures)
			upload.POST("/imagecapturediff", svc.upload.ImageCaptureDiff)
		}

		latest := api.Group("/latest")
		{
			latest.GET("/cloc", svc.latest.LinesOfCode)
			latest.GET("/linesofcode", svc.latest.LinesOfCode)
			latest.GET("/codecoverage", svc.latest.CodeCoverage)
			latest.GET("/unittest", svc.latest.UnitTests)
			latest.GET("/imagecapture", svc.latest.ImageCaptures)
			latest.GET("/imagecapturediff", svc.latest.ImageCaptureDiff)
		}
		api.GET("/history/codecoverage", svc.latest.CoverageHistory)
		api.GET("/owners", svc.latest.Owners)
		api.GET("/repositories", svc.latest.Repositories)
		api.GET("/branches", svc.latest.Branches)

		api.POST("/notifications/build",
			svc.limiter.Middleware(),
			middleware.IntakeRequired(svc.intakeToken, svc.auth),
			svc.notify.Build)

		api.POST("/admin/login", svc.admin.Login)

		admin := api.Group("/admin", middleware.AdminRequired(svc.auth), middleware.AuditLog())
		{
			admin.POST("/logout", svc.admin.Logout)
			admin.GET("/session", svc.admin.Session)
			admin.PUT("/repositories/default-branch", svc.admin.UpdateDefaultBranch)
			admin.POST("/owners", svc.admin.AddOwner)
			admin.DELETE("/owners/:owner", svc.admin.RemoveOwner)
			admin.POST("/retention/run", svc.admin.RunRetention)

			admin.GET("/notification-channels", svc.channels.List)
			admin.GET("/notification-channels/:id", svc.channels.GetByID)
			admin.POST("/notification-channels", svc.channels.Create)
			admin.PUT("/notification-channels/:id", svc.channels.Update)
			admin.DELETE("/notification-channels/:id", svc.channels.Delete)
		}
	}

	// Server-rendered dashboard
	site := r.Group("/", middleware.OptionalAdmin(svc.auth))
	{
		site.GET("/", svc.pages.Index)
		site.GET("/repositories", svc.pages.Repositories)
		site.GET("/repositories/repositoryDetails", svc.pages.RepositoryDetails)
		site.GET("/repositories/linesOfCodeDetails", svc.pages.LinesOfCodeDetails)
		site.GET("/repositories/codeCoverageDetails", svc.pages.CodeCoverageDetails)
		site.GET("/repositories/unitTestDetails", svc.pages.UnitTestDetails)
		site.GET("/repositories/imageCaptureDetails", svc.pages.ImageCaptureDetails)
		site.GET("/repositories/imageCaptureDiffDetails", svc.pages.ImageCaptureDiffDetails)
		site.GET("/repositories/changeBranch", svc.pages.ChangeBranch)
	}
}
