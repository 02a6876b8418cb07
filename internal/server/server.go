package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cognobserve/labeling/internal/config"
	"github.com/cognobserve/labeling/internal/handler"
	authmw "github.com/cognobserve/labeling/internal/middleware"
)

// Server represents the HTTP server
type Server struct {
	cfg     *config.Config
	handler *handler.Handler
	router  chi.Router
	server  *http.Server
}

// New creates a new server
func New(cfg *config.Config, h *handler.Handler) *Server {
	s := &Server{
		cfg:     cfg,
		handler: h,
		router:  chi.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// Router returns the root handler
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// No auth
	r.Get("/health", s.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// Stateless helpers
		r.Post("/normalize", s.handler.Normalize)
		r.Post("/match", s.handler.Match)
		r.Get("/renderers", s.handler.ListRenderers)
		r.Get("/renderers/resolve", s.handler.ResolveRenderer)

		// Reviewer endpoints
		r.Group(func(r chi.Router) {
			r.Use(authmw.JWTAuth([]byte(s.cfg.JWTSecret)))

			r.Post("/sessions/{sessionID}/items/{itemID}/open", s.handler.OpenItem)

			r.Route("/workspace", func(r chi.Router) {
				r.Get("/", s.handler.GetWorkspace)
				r.Put("/assessments/{schema}", s.handler.ChangeField)
				r.Post("/assessments/{schema}/retry", s.handler.RetryField)
				r.Post("/skip", s.handler.SkipItem)
				r.Put("/comment", s.handler.SetComment)
				r.Get("/save-status", s.handler.SaveStatus)
			})

			r.Get("/runs/{runID}/renderer", s.handler.GetRunRenderer)
			r.Put("/runs/{runID}/renderer", s.handler.SetRunRenderer)
		})
	})
}

// Run starts the server and blocks until context is cancelled
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
