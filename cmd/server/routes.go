package main

import (
	"github.com/gin-gonic/gin"
	"github.com/padoru233/trans-progress/internal/handlers"
	"github.com/padoru233/trans-progress/internal/middleware"
	"github.com/padoru233/trans-progress/internal/models"
	"github.com/padoru233/trans-progress/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	apiLimiter := middleware.NewRateLimiter(20, 40)

	// Health check
	healthHandler := handlers.NewHealthHandler()
	r.GET("/health", healthHandler.CheckHealth)

	authHandler := handlers.NewAuthHandler(svc.authSvc)
	projectHandler := handlers.NewProjectHandler(svc.projectSvc, svc.episodeSvc)
	episodeHandler := handlers.NewEpisodeHandler(svc.episodeSvc, svc.workflowSvc, svc.notifier)
	memberHandler := handlers.NewMemberHandler(svc.memberSvc)
	groupHandler := handlers.NewGroupHandler(svc.settingSvc, svc.broadcastSvc)
	systemLogHandler := handlers.NewSystemLogHandler(models.GetDB())

	api := r.Group("/api", apiLimiter.Middleware())
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.GET("/info", authHandler.AuthInfo)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		protected.Use(middleware.AuditLog())
		{
			protected.GET("/auth/profile", authHandler.Profile)
			protected.POST("/auth/change-password", authHandler.ChangePassword)
			protected.POST("/auth/logout", authHandler.Logout)

			// Projects
			protected.GET("/projects", projectHandler.List)
			protected.GET("/projects/:id", projectHandler.GetByID)
			protected.POST("/projects", projectHandler.Create)
			protected.PUT("/projects/:id", projectHandler.Update)
			protected.DELETE("/projects/:id", projectHandler.Delete)

			// Episodes
			protected.GET("/episodes/:id", episodeHandler.GetByID)
			protected.POST("/episodes", episodeHandler.Create)
			protected.PUT("/episodes/:id", episodeHandler.Update)
			protected.POST("/episodes/:id/advance", episodeHandler.Advance)
			protected.DELETE("/episodes/:id", episodeHandler.Delete)

			// Members
			protected.GET("/members", memberHandler.List)
			protected.PUT("/members/:id", memberHandler.UpdateName)
			protected.DELETE("/members/:id", memberHandler.Delete)

			// Groups
			protected.GET("/groups/settings", groupHandler.ListSettings)
			protected.GET("/groups/:group_id/setting", groupHandler.GetSetting)
			protected.PUT("/groups/:group_id/setting", groupHandler.UpdateSetting)
			protected.POST("/groups/:group_id/broadcast", groupHandler.TriggerBroadcast)
			protected.POST("/groups/:group_id/sync_members", memberHandler.SyncGroup)

			// System Logs
			protected.GET("/system-logs", systemLogHandler.List)
			protected.GET("/system-logs/modules", systemLogHandler.Modules)
			protected.POST("/system-logs/cleanup", systemLogHandler.Cleanup)
		}
	}
}
