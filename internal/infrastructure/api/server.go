package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/k-shtanenko/weather-app/weather-poller/internal/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

type StatusServer struct {
	server     *http.Server
	router     *gin.Engine
	handler    *StatusHandler
	middleware *Middleware
	logger     logger.Logger
}

// RateLimit bounds requests to the status endpoints. A zero Limit disables it.
type RateLimit struct {
	Limit  int
	Window time.Duration
}

func NewStatusServer(addr string, handler *StatusHandler, env string, limit RateLimit, log logger.Logger) *StatusServer {
	gin.SetMode(gin.ReleaseMode)
	if env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	s := &StatusServer{
		router:     gin.New(),
		handler:    handler,
		middleware: NewMiddleware(limit.Limit, limit.Window, log),
		logger:     log.WithField("component", "status_server"),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *StatusServer) setupRoutes() {
	s.router.Use(s.middleware.Recovery())
	s.router.Use(s.middleware.Logging())
	s.router.Use(s.middleware.RateLimit())

	s.router.GET("/health", s.handler.HealthCheck)
	s.router.GET("/stats", s.handler.GetStats)

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": fmt.Sprintf("Route %s not found", c.Request.URL.Path),
		})
	})
}

func (s *StatusServer) Handler() http.Handler {
	return s.router
}

// Start binds the listener synchronously so address errors surface to the
// caller, then serves in the background.
func (s *StatusServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	go func() {
		s.logger.Infof("Starting status server on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("Status server failed: %v", err)
		}
	}()

	return nil
}

func (s *StatusServer) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down status server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	s.logger.Info("Status server stopped")
	return nil
}
