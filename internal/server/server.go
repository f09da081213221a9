// Package server assembles the HTTP service: middleware, the demo login
// gate, and the feature route groups.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sfecr/compliagent/internal/analyst"
	"github.com/sfecr/compliagent/internal/auth"
	"github.com/sfecr/compliagent/internal/config"
	"github.com/sfecr/compliagent/internal/embeddings"
	"github.com/sfecr/compliagent/internal/llm"
	"github.com/sfecr/compliagent/internal/report"
	"github.com/sfecr/compliagent/internal/rulebase"
	"github.com/sfecr/compliagent/internal/workflow"
)

// Server is the compliance diagnosis web service.
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server

	analyst  *analyst.Analyst
	rules    *rulebase.Store
	index    *rulebase.SemanticIndex
	sessions *workflow.Manager
	authSvc  *auth.Service
	archive  *report.Archive
}

// New builds the server from configuration, creating the LLM provider
// and optional embedder from the environment.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("creating llm provider: %w", err)
	}
	provider = llm.NewRateLimitedProvider(provider, cfg.RequestsPerMinute)

	var embedder embeddings.Embedder
	if cfg.EmbeddingProvider != "" {
		embedder, err = embeddings.NewEmbedder(cfg.EmbeddingProvider, cfg.EmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("creating embedder: %w", err)
		}
	}

	return NewWithProvider(cfg, logger, provider, embedder)
}

// NewWithProvider builds the server around an existing provider. Used by
// New and by tests that inject a mock collaborator.
func NewWithProvider(cfg *config.Config, logger *zap.Logger, provider llm.Provider, embedder embeddings.Embedder) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		analyst: analyst.New(provider, cfg.Model),
		rules:   rulebase.NewStore(rulebase.SeedRules()),
		archive: report.NewArchive(),
	}

	if embedder != nil {
		index, err := rulebase.NewSemanticIndex(context.Background(), s.rules, embedder)
		if err != nil {
			// Semantic search is an enhancement; the service runs without it.
			logger.Warn("semantic index disabled", zap.Error(err))
		} else {
			s.index = index
		}
	}

	sessionTTL := time.Duration(cfg.SessionTTLMinutes) * time.Minute
	s.sessions = workflow.NewManager(sessionTTL, logger)

	authSvc, err := auth.NewService(sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating auth service: %w", err)
	}
	s.authSvc = authSvc

	s.router = s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	// No Timeout middleware: diagnosis calls have no enforced deadline,
	// cancellation rides on the request context.

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.Server.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Login endpoints stay outside the authenticated group.
	auth.RegisterRoutes(r, s.authSvc)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.authSvc))

		workflow.RegisterRoutes(r, workflow.Deps{
			Manager:   s.sessions,
			Extractor: s.analyst,
			Diagnoser: s.analyst,
			Rules:     s.rules,
			Logger:    s.logger,
		})
		rulebase.RegisterRoutes(r, s.rules, rulebase.NewImporter(s.rules, s.analyst, s.index), s.index)
		report.RegisterRoutes(r, s.archive, s.sessions)
	})

	return r
}

// requestLogger logs each request through zap with method, path, status
// and latency.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Sessions returns the workflow session manager.
func (s *Server) Sessions() *workflow.Manager { return s.sessions }

// Rules returns the rule store.
func (s *Server) Rules() *rulebase.Store { return s.rules }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("compliagent server listening", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
