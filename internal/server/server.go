package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/freshlabs/compliance-dashboard/internal/audit"
	"github.com/freshlabs/compliance-dashboard/internal/auth"
	"github.com/freshlabs/compliance-dashboard/internal/compliance"
	"github.com/freshlabs/compliance-dashboard/internal/config"
	"github.com/freshlabs/compliance-dashboard/internal/handlers"
	"github.com/freshlabs/compliance-dashboard/internal/insights"
	"github.com/freshlabs/compliance-dashboard/internal/metrics"
	"github.com/freshlabs/compliance-dashboard/internal/notification"
	"github.com/freshlabs/compliance-dashboard/internal/reporting"
)

// Server wires the dashboard components together and owns their lifecycle
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	engine     *compliance.Engine
	handler    *handlers.DashboardHandler
	cron       *cron.Cron
	httpServer *http.Server
}

// NewServer creates a fully wired dashboard server
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	collector := metrics.NewCollector()
	trail := audit.NewTrail(logger.Named("audit"))

	engine := compliance.NewEngine(cfg.Dashboard, logger.Named("compliance"), trail)
	notifier := notification.NewManager(logger.Named("notification"))
	engine.SetRemarkListener(notifier)

	reportEngine := reporting.NewEngine(cfg.Reporting, cfg.Dashboard.Organization, logger.Named("reporting"))
	insightClient := insights.NewClient(insights.Config{
		APIKey:   cfg.Insights.APIKey,
		Endpoint: cfg.Insights.Endpoint,
		Model:    cfg.Insights.Model,
		Timeout:  cfg.Insights.Timeout,
	}, logger.Named("insights"))
	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)

	handler := handlers.NewDashboardHandler(
		cfg.Dashboard, engine, trail, notifier, reportEngine, insightClient, tokens, collector, logger.Named("handlers"),
	)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handler.RegisterRoutes(router)

	if cfg.Monitoring.EnableMetrics {
		router.GET(cfg.Monitoring.MetricsPath, gin.WrapH(
			promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}),
		))
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Dashboard.ReminderSchedule, func() {
		handler.RefreshReminders(time.Now())
	}); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", cfg.Dashboard.ReminderSchedule, err)
	}

	return &Server{
		config:  cfg,
		logger:  logger,
		engine:  engine,
		handler: handler,
		cron:    scheduler,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.Timeout,
			WriteTimeout: cfg.Server.Timeout,
		},
	}, nil
}

// Start starts the engine, scheduler and HTTP listener. Blocks until the
// listener exits.
func (s *Server) Start() error {
	if err := s.engine.Start(); err != nil {
		return fmt.Errorf("failed to start compliance engine: %w", err)
	}

	s.cron.Start()

	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	s.cron.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown failed: %w", err)
	}

	if err := s.engine.Stop(); err != nil {
		s.logger.Error("Failed to stop compliance engine", zap.Error(err))
	}

	s.logger.Info("Server stopped")
	return nil
}
