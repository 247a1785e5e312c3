// Package server wraps a gin engine in an HTTP server with lifecycle
// management and the standard middleware chain.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	httpopts "github.com/kart-io/advisor-x/pkg/options/http"
)

// HTTPServer owns the gin engine and the underlying http.Server.
type HTTPServer struct {
	engine *gin.Engine
	srv    *http.Server
	opts   *httpopts.Options
}

// New creates an HTTPServer with the standard middleware chain installed.
func New(opts *httpopts.Options) *HTTPServer {
	gin.SetMode(opts.Mode)

	engine := gin.New()
	engine.Use(RequestID(), Logger(), Recovery())

	return &HTTPServer{
		engine: engine,
		opts:   opts,
		srv: &http.Server{
			Addr:         opts.Addr,
			Handler:      engine,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
	}
}

// Engine exposes the gin engine for route registration.
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// Run serves until the context is canceled, then shuts down gracefully
// within the configured shutdown timeout.
func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.opts.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infow("HTTP server shutting down", "timeout", s.opts.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
