// Package api exposes the retrieval, generation and ingestion endpoints
// over HTTP. Everything under /api/v1 requires the static bearer token.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quaystone/threadline/internal/answer"
	"github.com/quaystone/threadline/internal/ingest"
	"github.com/quaystone/threadline/internal/store"
)

// Retriever is the search slice of the document store.
type Retriever interface {
	HybridSearch(ctx context.Context, query string, limit int, alpha float64) ([]store.SearchResult, error)
}

// Asker generates grounded answers from retrieved threads.
type Asker interface {
	Ask(ctx context.Context, query string, topK int) (*answer.Answer, error)
}

// Runner executes ingestion runs.
type Runner interface {
	Run(ctx context.Context, path string, opts ingest.Options) (*ingest.RunStats, error)
}

// Publisher emits upload notifications. May be nil.
type Publisher interface {
	Publish(subject string, data any) error
}

// Deps wires the server's collaborators.
type Deps struct {
	Retriever   Retriever
	Asker       Asker
	Runner      Runner
	Events      Publisher
	KnowledgeID string
	SearchAlpha float64
	ExportPath  string
	IngestOpts  ingest.Options
}

type Server struct {
	router   *chi.Mux
	port     int
	apiToken string
	deps     Deps
	logger   *slog.Logger
}

func NewServer(port int, apiToken string, deps Deps, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		apiToken: apiToken,
		deps:     deps,
		logger:   logger,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(bearerAuth(apiToken))
		r.Get("/status", s.status)
		r.Post("/retrieval", s.retrieval)
		r.Post("/ask", s.ask)
		r.Post("/ingest", s.triggerIngest)
		r.Post("/upload", s.upload)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// bearerAuth rejects requests whose Authorization header does not carry
// the configured token.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeError(w, http.StatusInternalServerError, 1001, "API token not configured")
				return
			}
			header := r.Header.Get("Authorization")
			got, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || got != token {
				writeError(w, http.StatusUnauthorized, 1002, "Authorization failed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service":      "threadline",
		"knowledge_id": s.deps.KnowledgeID,
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

func writeError(w http.ResponseWriter, status, code int, msg string) {
	writeJSON(w, status, errorBody{ErrorCode: code, ErrorMessage: msg})
}
