// Package api exposes the simulator's admin HTTP surface.
//
// It provides RESTful endpoints for creating sessions, driving turns
// (messages, button selections, document uploads), and reading transcripts.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jothamO/prism-admin/internal/engine"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server routes admin HTTP requests into the dialogue engine.
type Server struct {
	engine *engine.Engine
	addr   string
	srv    *http.Server
}

// NewServer creates an API server over the engine.
func NewServer(eng *engine.Engine, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{engine: eng, addr: cfg.Addr}
}

// Handler builds the route table. Exposed separately so tests can drive the
// mux without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sessions", s.createSessionHandler)
	mux.HandleFunc("GET /v1/sessions/{id}", s.getSessionHandler)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.resetSessionHandler)
	mux.HandleFunc("POST /v1/sessions/{id}/messages", s.messageHandler)
	mux.HandleFunc("POST /v1/sessions/{id}/selections", s.selectionHandler)
	mux.HandleFunc("POST /v1/sessions/{id}/invoice", s.invoiceHandler)
	mux.HandleFunc("POST /v1/sessions/{id}/statement", s.statementHandler)
	mux.HandleFunc("GET /v1/sessions/{id}/transcript", s.transcriptHandler)
	return mux
}

// Run starts the HTTP server and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: admin API listening", "addr", s.addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		slog.Info("Server.Run: shut down cleanly")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}
}
