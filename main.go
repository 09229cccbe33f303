package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"omnidrive/config"
	"omnidrive/controllers"
	"omnidrive/database"
	"omnidrive/routes"
	"omnidrive/services"
	"omnidrive/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	app, err := NewApplication()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Start(); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

// Application wires configuration, storage, services and the HTTP
// server together.
type Application struct {
	config *config.Config
	logger *logrus.Logger
	db     *gorm.DB
	server *http.Server
	router *gin.Engine
}

// NewApplication creates and initializes a new application instance
func NewApplication() (*Application, error) {
	cfg := config.LoadConfig()
	if err := cfg.ValidateConfig(); err != nil {
		return nil, err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	// Service graph
	perms := services.NewPermissionService(db)
	paths := services.NewPathService()
	activity := services.NewActivityService(db)
	thumbs := services.NewThumbnailService(cfg, logger)
	uploads := services.NewUploadService(db, cfg, perms, paths, activity, store, thumbs)
	files := services.NewFileService(db, cfg, perms, paths, activity, store, thumbs)
	shares := services.NewShareService(db, perms, activity, uploads)

	router := setupRouter(cfg)
	routes.SetupRoutes(router, cfg, db, logger, &routes.Controllers{
		Files:  controllers.NewFileController(cfg, files, uploads, perms, thumbs),
		Shares: controllers.NewShareController(shares, files),
	})

	app := &Application{
		config: cfg,
		logger: logger,
		db:     db,
		router: router,
		server: &http.Server{
			Addr:         cfg.GetServerAddress(),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	return app, nil
}

// Start runs the HTTP server and blocks until shutdown.
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":     app.config.AppVersion,
		"environment": app.config.Environment,
		"storage":     app.config.StorageProvider,
	}).Infof("Starting %s", app.config.AppName)

	go func() {
		app.logger.Infof("Server listening on %s", app.server.Addr)
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	app.waitForShutdown()
	return nil
}

func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	router.GET("/health", healthCheckHandler(cfg))
	router.GET("/version", versionHandler(cfg))

	return router
}

// waitForShutdown blocks on the interrupt signal, then drains in-flight
// requests before closing the database.
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.WithError(err).Error("Server forced to shutdown")
	}

	if sqlDB, err := app.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			app.logger.WithError(err).Error("Error closing database")
		}
	}

	app.logger.Info("Server shutdown complete")
}

func healthCheckHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   cfg.AppName,
			"version":   cfg.AppVersion,
			"timestamp": time.Now().Unix(),
		})
	}
}

func versionHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        cfg.AppName,
			"version":     cfg.AppVersion,
			"environment": cfg.Environment,
		})
	}
}
