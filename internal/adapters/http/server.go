// Package http serves the quote widget's API with Gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/platform/config"
)

// Server owns the Gin engine and the listener behind it.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	config     *config.ServerConfig
	logger     *slog.Logger

	bound atomic.Pointer[net.Addr]
}

// New builds a server for cfg without binding. Request bodies are capped at
// cfg.MaxRequestSize.
func New(cfg *config.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(limitBody(cfg.MaxRequestSize))

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{engine: engine, httpServer: srv, config: cfg, logger: logger}
}

// Engine is where routes are mounted before Start.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) Config() *config.ServerConfig { return s.config }

// Start binds synchronously so a port clash fails startup, then serves in
// the background. The returned channel yields at most one serve error and is
// closed once serving ends.
func (s *Server) Start() (<-chan error, error) {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}

	addr := ln.Addr()
	s.bound.Store(&addr)

	s.logger.Info("quote API listening",
		slog.String("addr", addr.String()),
		slog.Duration("read_timeout", s.config.ReadTimeout),
		slog.Duration("write_timeout", s.config.WriteTimeout),
		slog.Int64("max_request_size", s.config.MaxRequestSize),
	)

	done := make(chan error, 1)

	go func() {
		defer close(done)

		err := s.httpServer.Serve(ln)
		if !errors.Is(err, http.ErrServerClosed) {
			done <- fmt.Errorf("serving quote API: %w", err)
		}
	}()

	return done, nil
}

// Shutdown drains in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("quote API draining")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("draining quote API: %w", err)
	}

	s.logger.Info("quote API stopped")

	return nil
}

// Addr is the bound address after Start, which resolves port 0, and the
// configured address before it.
func (s *Server) Addr() string {
	if addr := s.bound.Load(); addr != nil {
		return (*addr).String()
	}

	return s.httpServer.Addr
}

func limitBody(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
