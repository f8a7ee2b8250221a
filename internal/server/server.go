// Package server exposes the compiler over HTTP.
//
//	POST /translate  {"query": {...}} or {"bulkQuery": "<multi-search body>"}
//	GET  /health
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/filterjoin/internal/compiler"
	"github.com/roach88/filterjoin/internal/config"
	"github.com/roach88/filterjoin/internal/store"
)

// Recorder persists translations. *store.Store implements it.
type Recorder interface {
	Record(ctx context.Context, t store.Translation) (store.Translation, error)
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	compiler *compiler.Compiler
	recorder Recorder
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
// recorder may be nil, in which case translations are not recorded.
func NewServer(c *compiler.Compiler, recorder Recorder, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		compiler: c,
		recorder: recorder,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Post("/translate", s.handleTranslate)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully within timeout.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, timeout time.Duration, log *slog.Logger) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting filterjoin server", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
