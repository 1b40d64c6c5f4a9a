package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/dgallion1/docchat/internal/config"
	"github.com/dgallion1/docchat/internal/llm"
	"github.com/dgallion1/docchat/internal/pipeline"
	"github.com/dgallion1/docchat/internal/rag"
	"github.com/dgallion1/docchat/internal/vectorstore"
)

// Deps are the components the API serves.
type Deps struct {
	RAG      *rag.Orchestrator
	Pipeline *pipeline.Orchestrator
	Index    vectorstore.Index
	LLM      *llm.Instrumented
}

// Server is the HTTP API server for docchat.
type Server struct {
	router   chi.Router
	rag      *rag.Orchestrator
	pipeline *pipeline.Orchestrator
	index    vectorstore.Index
	llm      *llm.Instrumented
	validate *validator.Validate
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		rag:      deps.RAG,
		pipeline: deps.Pipeline,
		index:    deps.Index,
		llm:      deps.LLM,
		validate: validator.New(),
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/query", s.handleQuery)
		r.Get("/api/memory", s.handleGetMemory)
		r.Delete("/api/memory", s.handleClearMemory)

		r.Post("/api/ingest", s.handleIngest)
		r.Post("/api/index", s.handleReindex)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Get("/api/documents", s.handleListDocuments)
		r.Delete("/api/documents", s.handleDeleteDocument)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.pipeline.QueueDepth(),
	})
}
