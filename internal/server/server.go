// HTTP server initialization and lifecycle management.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/paideia-app/paideia/internal/api"
	"github.com/paideia-app/paideia/internal/infra/config"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 120 * time.Second // provider calls with retries can run long
	idleTimeout  = 60 * time.Second
)

// Server wraps the HTTP server and database.
type Server struct {
	db     *sql.DB
	http   *http.Server
	log    *zap.Logger
	cancel context.CancelFunc // stops the background embedder
}

// New creates the HTTP server with routing wired against the database.
func New(db *sql.DB, cfg config.Config, log *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	router := api.NewRouter(ctx, db, cfg, log)

	return &Server{
		db: db,
		http: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
		log:    log,
		cancel: cancel,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.log.Info("starting http server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully drains in-flight requests, stops the background
// embedder and closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down server")
	s.cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("database close: %w", err)
	}

	s.log.Info("server shutdown complete")
	return nil
}
