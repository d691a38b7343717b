// Package web is the interactive surface: an upload page, progress
// streaming, and outcome preview/download endpoints.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pagelens/pdftext/internal/domain"
	"github.com/pagelens/pdftext/internal/observability"
)

// sessionTTL is how long finished outcomes stay retrievable.
const sessionTTL = time.Hour

// Server serves the upload UI and the extraction API.
type Server struct {
	logger         *observability.Logger
	pipeline       domain.Pipeline
	store          *Store
	maxUploadBytes int64

	// busy enforces one extraction at a time.
	busy chan struct{}
}

// NewServer creates the web server around an extraction pipeline.
func NewServer(logger *observability.Logger, pipeline domain.Pipeline, maxUploadBytes int64) *Server {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Server{
		logger:         logger.WithComponent("web"),
		pipeline:       pipeline,
		store:          NewStore(sessionTTL),
		maxUploadBytes: maxUploadBytes,
		busy:           make(chan struct{}, 1),
	}
}

// Router builds the HTTP handler with all routes configured.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"pdftext"}`))
	})

	r.Get("/", s.handleIndex)

	r.Route("/api/v1/extractions", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Get("/{id}", s.handleOutcome)
		r.Get("/{id}/events", s.handleEvents)
		r.Get("/{id}/download", s.handleDownload)
	})

	return r
}

// Close releases server resources.
func (s *Server) Close() {
	s.store.Close()
}
