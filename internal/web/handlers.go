package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pagelens/pdftext/internal/domain"
)

// multipartSlack covers multipart framing overhead on top of the document
// size ceiling.
const multipartSlack = 1 << 20

// ExtractionDTO is the API representation of an extraction session.
type ExtractionDTO struct {
	ID       string                    `json:"id"`
	Filename string                    `json:"filename"`
	Status   Status                    `json:"status"`
	Stage    domain.Stage              `json:"stage"`
	Error    string                    `json:"error,omitempty"`
	Outcome  *domain.ExtractionOutcome `json:"outcome,omitempty"`
}

// handleUpload accepts a PDF upload and starts the extraction pipeline.
// Only one extraction runs at a time; concurrent uploads get 409.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartSlack)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file field is required", err.Error())
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		s.writeError(w, http.StatusUnsupportedMediaType, "only PDF files are accepted", "")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read upload", err.Error())
		return
	}
	if len(data) == 0 {
		s.writeError(w, http.StatusBadRequest, "uploaded file is empty", "")
		return
	}
	if int64(len(data)) > s.maxUploadBytes {
		s.writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds the %d byte limit", s.maxUploadBytes), "")
		return
	}

	select {
	case s.busy <- struct{}{}:
	default:
		s.writeError(w, http.StatusConflict, "an extraction is already running", "")
		return
	}

	session := s.store.Create(header.Filename)
	doc := domain.UploadedDocument{Name: header.Filename, Data: data}

	s.logger.Info().
		Str("session", session.ID).
		Str("filename", header.Filename).
		Int("bytes", len(data)).
		Msg("starting extraction")

	events := make(chan domain.Event, 128)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for ev := range events {
			session.Publish(ev)
		}
	}()

	// The extraction outlives the upload request; the session is the
	// handle the UI polls and streams from.
	go func() {
		defer func() { <-s.busy }()
		outcome, err := s.pipeline.Extract(context.Background(), doc, events)
		close(events)
		<-forwarded
		session.Finish(outcome, err)
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(ExtractionDTO{
		ID:       session.ID,
		Filename: session.Filename,
		Status:   StatusRunning,
		Stage:    domain.StageValidating,
	})
}

// handleOutcome returns the current state of an extraction session.
func (s *Server) handleOutcome(w http.ResponseWriter, r *http.Request) {
	session, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "extraction not found", "")
		return
	}

	status, stage, outcome, err := session.State()
	dto := ExtractionDTO{
		ID:       session.ID,
		Filename: session.Filename,
		Status:   status,
		Stage:    stage,
		Outcome:  outcome,
	}
	if err != nil {
		dto.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto)
}

// handleEvents streams progress events over SSE: past events first, then
// live ones until the extraction finishes or the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "extraction not found", "")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshot, live := session.Subscribe()
	for _, ev := range snapshot {
		writeSSE(w, ev)
	}
	flusher.Flush()

	for {
		select {
		case ev, ok := <-live:
			if !ok {
				return
			}
			writeSSE(w, ev)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// handleDownload serves the joined text as a UTF-8 plain-text attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	session, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "extraction not found", "")
		return
	}

	status, _, outcome, _ := session.State()
	if status != StatusDone || outcome == nil {
		s.writeError(w, http.StatusConflict, "extraction has no downloadable outcome", "")
		return
	}

	base := strings.TrimSuffix(session.Filename, filepath.Ext(session.Filename))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", base+"_extracted.txt"))
	io.WriteString(w, outcome.Text)
}

func writeSSE(w io.Writer, ev domain.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":  message,
		"detail": detail,
	})
}
