// Package dashboard exposes the automation over HTTP: health, task triggers,
// stored reports, service logs and Prometheus metrics.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/pkg/automation"
	"github.com/amosWeiskopf/seoautomation/pkg/logger"
)

// Server serves the dashboard API
type Server struct {
	orch   *automation.Orchestrator
	cfg    config.DashboardConfig
	log    *logger.Logger
	engine *gin.Engine
	srv    *http.Server
}

// New builds the router for orch
func New(orch *automation.Orchestrator) *Server {
	cfg := orch.Config().Dashboard
	log, err := orch.Logger(automation.LogOrchestrator)
	if err != nil {
		log = logger.Nop()
	}

	s := &Server{orch: orch, cfg: cfg, log: log}
	s.engine = s.routes()
	s.srv = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	c.MaxAge = 12 * time.Hour

	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	return c
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))
	r.Use(prometheusMiddleware())
	r.Use(cors.New(corsConfig(s.cfg.AllowedOrigins)))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/status", s.status)
		api.POST("/tasks/:task", s.runTask)
		api.GET("/reports/:type", s.report)
		api.GET("/logs", s.services)
		api.GET("/logs/:service", s.logs)
	}
	return r
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr is the listen address
func (s *Server) Addr() string {
	return s.srv.Addr
}

// ListenAndServe blocks until the server stops. A graceful shutdown is not
// an error.
func (s *Server) ListenAndServe() error {
	s.log.Info(fmt.Sprintf("Dashboard listening on %s", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dashboard server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down dashboard")
	return s.srv.Shutdown(ctx)
}
