package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/toot-warehouse/internal/logger"
)

// Server timeouts.
const (
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 5 * time.Minute // batch loads and view refreshes can be slow
	defaultIdleTimeout     = 2 * time.Minute
	defaultShutdownTimeout = 30 * time.Second
)

// Server is the warehouse HTTP server with lifecycle management.
type Server struct {
	router *gin.Engine
	server *http.Server
	log    logger.Logger
}

// NewServer creates an HTTP server with standard middleware applied.
// The setupRoutes function configures service-specific routes.
func NewServer(port int, debug bool, log logger.Logger, setupRoutes func(*gin.Engine)) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(log))
	router.Use(LoggerMiddleware(log))

	if setupRoutes != nil {
		setupRoutes(router)
	}

	return &Server{
		router: router,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      router,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
			IdleTimeout:  defaultIdleTimeout,
		},
		log: log,
	}
}

// Router returns the underlying Gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the server and blocks until it is shut down.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", logger.String("address", s.server.Addr))

	if listenErr := s.server.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", listenErr)
	}

	return nil
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()

	if shutdownErr := s.server.Shutdown(shutdownCtx); shutdownErr != nil {
		return fmt.Errorf("server shutdown error: %w", shutdownErr)
	}

	s.log.Info("HTTP server stopped gracefully")

	return nil
}

// RunWithGracefulShutdown starts the server and shuts it down on SIGINT,
// SIGTERM, or context cancellation.
func (s *Server) RunWithGracefulShutdown(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- s.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case startErr := <-errCh:
		return startErr
	case sig := <-sigCh:
		s.log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case <-ctx.Done():
		s.log.Info("context cancelled, shutting down")
	}

	// Fresh context: the original may already be cancelled
	return s.Shutdown(context.Background())
}
