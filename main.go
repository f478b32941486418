package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filedrawer.app/web/internal"
	"filedrawer.app/web/internal/config"
	"filedrawer.app/web/internal/database"
	"filedrawer.app/web/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Version tag is populated during build
var Version = "Development"

func newLogger(isProduction bool) *logrus.Logger {
	return &logrus.Logger{
		Out: os.Stderr,
		Formatter: &logrus.TextFormatter{
			DisableTimestamp: isProduction,
			FullTimestamp:    true,
			TimestampFormat:  time.DateTime,
		},
		Hooks:        make(logrus.LevelHooks),
		Level:        logrus.InfoLevel,
		ExitFunc:     os.Exit,
		ReportCaller: false,
	}
}

func main() {
	// Enviroment variables
	cfg, envFileLoaded, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %s", err)
	}
	logger := newLogger(cfg.Production)
	if envFileLoaded {
		logger.Info("Loaded env variables from .env")
	}
	if cfg.Production {
		logger.Info("Enviroment 'Production'")
	} else {
		logger.Info("Enviroment 'Development'")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	var db *sql.DB
	var repo database.Repository
	switch cfg.StorageBackend {
	case config.BackendMemory:
		logger.Warn("Using in-memory storage, data is lost on restart")
		repo = database.NewMemoryRepository()
	default:
		db, err = database.ConnectDB(ctx, cfg.PostgresDSN())
		if err != nil {
			logger.Fatalf("Database connection error: %s", err)
		}
		defer db.Close()
		logger.Infof("Connected to %s database", cfg.DBName)

		if err := database.RunMigrations(ctx, db); err != nil {
			logger.Fatalf("Database migration error: %s", err)
		}
		repo = database.NewPostgresRepository(db)
	}

	// File storage
	disk, err := internal.NewDisk(cfg.FileStoragePath)
	if err != nil {
		logger.Fatalf("File storage error: %s", err)
	}
	logger.Infof("Storing uploads in '%s'", disk.Root)

	store, err := internal.NewSessionStore(cfg, db)
	if err != nil {
		logger.Fatalf("Session store error: %s", err)
	}
	if stopCleanup, ok := internal.StartSessionCleanup(store, cfg.SessionCleanupInterval); ok {
		defer stopCleanup()
		logger.Infof("Pruning expired sessions every %s", cfg.SessionCleanupInterval)
	}

	// Initialize HTTP server and routes
	handler := internal.NewHandler(cfg, logger, repo, disk)
	middleware.PrometheusInit()
	gin.SetMode(gin.ReleaseMode)
	router, err := internal.NewRouter(cfg, handler, store)
	if err != nil {
		logger.Fatalf("Router setup error: %s", err)
	}
	go handler.PingSockets(ctx.Done())

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown error: %s", err)
		}
	}()

	logger.Infof("File Drawer (%s) is online 'http://localhost:%s/'", Version, cfg.Port)

	// Listen and serve
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server fatal error: %s", err)
	}
	logger.Info("Server shutdown successfully")
}
