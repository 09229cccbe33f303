package routes

import (
	"omnidrive/config"
	"omnidrive/controllers"
	"omnidrive/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Controllers bundles the HTTP surfaces wired by main.
type Controllers struct {
	Files  *controllers.FileController
	Shares *controllers.ShareController
}

func SetupRoutes(r *gin.Engine, cfg *config.Config, db *gorm.DB, logger *logrus.Logger, ctrl *Controllers) {
	// Global middleware
	r.Use(middleware.CORSMiddleware(cfg))
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(gin.Recovery())

	api := r.Group("/api")
	if cfg.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitRequests)
		api.Use(middleware.RateLimitMiddleware(limiter))
	}

	// Anonymous token surface
	PublicShareRoutes(api, ctrl.Shares)

	// Authenticated surface
	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(db))
	{
		FileRoutes(authed, ctrl.Files)
		ShareRoutes(authed, ctrl.Shares)
	}
}
