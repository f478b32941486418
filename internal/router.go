package internal

import (
	"fmt"

	"filedrawer.app/web/internal/config"
	"filedrawer.app/web/internal/middleware"
	"filedrawer.app/web/internal/templates"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with every middleware and route registered.
func NewRouter(cfg *config.Config, h *Handler, store sessions.Store) (*gin.Engine, error) {
	views, err := templates.Load()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	authLimiter, err := middleware.RateLimiter(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(views)

	h.Logger.Info("Registering middleware...")
	router.Use(gin.Recovery())
	router.Use(middleware.LogHandler(h.Logger))
	router.Use(middleware.ErrorHandler(h.Logger))
	router.Use(sessions.Sessions(SessionName, store))
	if corsHandler := InitCors(cfg.AllowedOrigins); corsHandler != nil {
		router.Use(corsHandler)
	}
	router.Use(middleware.Authenticate(h, h.Logger))

	h.Logger.Info("Registering routes...")
	router.GET("/", h.Index)
	router.GET("/healthz", h.Healthz)
	if cfg.MetricsPassword != "" {
		router.GET("/metrics", middleware.MetricsHandler(cfg.MetricsPassword))
	}
	// Auth
	router.GET("/sign-up", h.SignupForm)
	router.POST("/sign-up", authLimiter, h.Signup)
	router.GET("/log-in", h.LoginForm)
	router.POST("/log-in", authLimiter, h.Login)
	router.GET("/log-out", h.Logout)
	// Folders
	router.GET("/create-folder", middleware.Protected(h.CreateFolderForm))
	router.POST("/create-folder", middleware.Protected(h.CreateFolder))
	router.GET("/folders/:id/update", middleware.Protected(h.UpdateFolderForm))
	router.POST("/folders/:id/update", middleware.Protected(h.UpdateFolder))
	router.POST("/folders/:id/delete", middleware.Protected(h.DeleteFolder))
	// Files
	router.GET("/folders/:id/files", middleware.Protected(h.ListFiles))
	router.POST("/folders/:id/files/create", middleware.Protected(h.UploadFile))
	router.POST("/folders/:id/files/:fileId/delete", middleware.Protected(h.DeleteFile))
	router.GET("/folders/:id/files/:fileId/download", middleware.Protected(h.DownloadFile))
	// Live updates
	router.GET("/ws", middleware.Protected(h.Socket))

	return router, nil
}
