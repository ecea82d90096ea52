package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roastmarket_backend/internal/auth"
	"roastmarket_backend/internal/config"
	"roastmarket_backend/internal/database"
	"roastmarket_backend/internal/handlers"
	"roastmarket_backend/internal/logger"
	"roastmarket_backend/internal/metrics"
	"roastmarket_backend/internal/middleware"
	"roastmarket_backend/internal/routes"
	"roastmarket_backend/internal/services"
	"roastmarket_backend/internal/validator"
	"roastmarket_backend/internal/workers"
	"roastmarket_backend/pkg/apperrors"
	"roastmarket_backend/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

// Server is the assembled application: HTTP router, realtime hub and
// background workers sharing one database and one token manager.
type Server struct {
	Router   *gin.Engine
	Realtime *ws.WebSocketManager
	Services *services.ServiceContainer
	Tokens   *auth.TokenManager

	worker *workers.NotificationWorker
}

func Run() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		apperrors.SetDebug(false)
	}

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			logger.Fatal("Failed to migrate database", "error", err)
		}
		logger.Info("Database schema migrated")
	}

	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewServer(cfg, db, registry)
	realtimeDone := server.Start(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Address(),
		Handler:           server.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		logger.Error("Server startup error", "error", err)
		stop()
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	// Realtime connections are hijacked and not tracked by http.Server.
	select {
	case <-realtimeDone:
	case <-shutdownCtx.Done():
		logger.Warn("Realtime hub did not drain before timeout")
	}
	logger.Info("Server stopped")
}

// NewServer wires every component. registry may be nil to disable metrics.
func NewServer(cfg *config.Config, db *gorm.DB, registry *prometheus.Registry) *Server {
	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)

	var (
		promMetrics    *metrics.PrometheusMetrics
		wsMetrics      ws.Metrics
		serviceMetrics services.Metrics
		httpMetrics    middleware.HTTPMetrics
		metricsHandler http.Handler
	)
	if registry != nil {
		promMetrics = metrics.NewPrometheusMetrics(registry)
		wsMetrics = promMetrics
		serviceMetrics = promMetrics
		httpMetrics = promMetrics
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	// The hub needs order access from the tracking service, which in turn
	// publishes through the hub.
	var serviceContainer *services.ServiceContainer
	access := ws.OrderAccessFunc(func(ctx context.Context, userID, role, orderID string) error {
		return serviceContainer.TrackingService.CanSubscribe(ctx, userID, role, orderID)
	})

	realtime := ws.NewWebSocketManager(ws.Options{
		SendBuffer:       cfg.Realtime.SendBuffer,
		MaxMessageBytes:  cfg.Realtime.MaxMessageBytes,
		WriteTimeout:     cfg.Realtime.WriteTimeout,
		HeartbeatTimeout: cfg.Realtime.HeartbeatTimeout,
	}, tokens, access, wsMetrics, logger.GetLogger())

	serviceContainer = services.NewServiceContainer(db, realtime, serviceMetrics)

	appHandlers := initializeHandlers(serviceContainer, realtime)
	wsHandler := ws.NewWebSocketHandler(realtime, cfg.Realtime.AllowedOrigins)

	router := initializeGinRouter(cfg, httpMetrics)
	routes.RegisterRoutes(router, appHandlers, wsHandler, tokens, metricsHandler)

	return &Server{
		Router:   router,
		Realtime: realtime,
		Services: serviceContainer,
		Tokens:   tokens,
		worker: workers.NewNotificationWorker(
			serviceContainer.NotificationService,
			cfg.Workers.NotificationRetentionDays,
			cfg.Workers.CleanupInterval,
		),
	}
}

// Start launches the realtime hub and the background workers. The returned
// channel is closed once the hub has closed every connection after ctx ends.
func (s *Server) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Realtime.Run(ctx)
	}()
	s.worker.Start(ctx)
	return done
}

func initializeHandlers(serviceContainer *services.ServiceContainer, realtime *ws.WebSocketManager) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(validator.New())

	return &handlers.AppHandlers{
		NotificationHandler: handlers.NewNotificationHandler(baseHandler, serviceContainer.NotificationService),
		TrackingHandler:     handlers.NewTrackingHandler(baseHandler, serviceContainer.TrackingService),
		RealtimeHandler:     handlers.NewRealtimeHandler(baseHandler, realtime),
	}
}

func initializeGinRouter(cfg *config.Config, httpMetrics middleware.HTTPMetrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(httpMetrics))
	router.Use(middleware.CORSMiddleware(cfg.Realtime.AllowedOrigins))
	return router
}
