package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ignite/notify-engine/internal/config"
)

// Server wraps the HTTP server with lifecycle management.
type Server struct {
	config config.ServerConfig
	server *http.Server
}

// NewServer creates the API server.
func NewServer(cfg config.ServerConfig, h *Handlers) *Server {
	router := SetupRoutes(h)
	addr := fmt.Sprintf("%s:%d", cfg.GetHost(), cfg.Port)
	return &Server{
		config: cfg,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	log.Printf("[API] Listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("[API] Shutting down")
	return s.server.Shutdown(ctx)
}
