package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/hierchunk/internal/config"
	"github.com/dgallion1/hierchunk/internal/indexsink"
	"github.com/dgallion1/hierchunk/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for hierchunk.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	index        *indexsink.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. index may be nil when no
// index service is configured.
func NewServer(orch *pipeline.Orchestrator, index *indexsink.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		index:        index,
		log:          log,
		cfg:          cfg,
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

		r.Post("/api/split", s.handleSplit)
		r.Post("/api/normalize", s.handleNormalize)

		r.Post("/api/jobs", s.handleSubmitJob)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/jobs/{jobID}/result", s.handleJobResult)

		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		r.Get("/api/stats/split", s.handleSplitStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
