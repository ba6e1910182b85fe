package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/observability"
)

type App struct {
	Log      *logger.Logger
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services

	httpServer   *http.Server
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.AppEnv,
		Version:     cfg.Version,
	})

	clientset, err := wireClients(ctx, log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(clientset, log)
	serviceset := wireServices(log, cfg, clientset, reposet)
	handlerset := wireHandlers(log, cfg, serviceset)
	mw := wireMiddleware(log, cfg, clientset)
	router := wireRouter(cfg, handlerset, mw)

	return &App{
		Log:          log,
		Router:       router,
		Cfg:          cfg,
		Clients:      clientset,
		Repos:        reposet,
		Services:     serviceset,
		otelShutdown: otelShutdown,
	}, nil
}

// Run blocks until the listener fails or Shutdown is called.
func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.httpServer = &http.Server{
		Addr:    ":" + a.Cfg.Port,
		Handler: a.Router,
	}
	a.Log.Info("Server listening", "port", a.Cfg.Port, "env", a.Cfg.AppEnv)
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes clients and flushes
// telemetry and logs.
func (a *App) Shutdown(ctx context.Context) {
	if a == nil {
		return
	}
	if a.httpServer != nil {
		drainCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := a.httpServer.Shutdown(drainCtx); err != nil {
			a.Log.Warn("HTTP shutdown error", "error", err)
		}
	}
	a.Clients.Close(ctx)
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown error", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
