// Package extract orchestrates the extraction pipeline: validate the
// upload, rasterize pages, transcribe each page, and join the results in
// page order.
package extract

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pagelens/pdftext/internal/domain"
	"github.com/pagelens/pdftext/internal/observability"
	"github.com/pagelens/pdftext/internal/pdf"
)

// Options configures pipeline behavior.
type Options struct {
	RasterDPI      int
	MaxUploadBytes int64

	// PageConcurrency bounds the number of in-flight transcription calls.
	// 1 processes pages strictly sequentially.
	PageConcurrency int

	// ContinueOnPageError keeps going after a page fails and records a
	// per-page error; when false the first page failure aborts the run.
	ContinueOnPageError bool

	// PageSeparator joins successful page texts, in page order.
	PageSeparator string
}

// Service drives one extraction from upload to joined text.
type Service struct {
	rasterizer  domain.Rasterizer
	transcriber domain.Transcriber
	opts        Options
	logger      *observability.Logger
}

// NewService creates a new extraction service.
func NewService(rasterizer domain.Rasterizer, transcriber domain.Transcriber, opts Options, logger *observability.Logger) *Service {
	if opts.PageConcurrency < 1 {
		opts.PageConcurrency = 1
	}
	if opts.PageSeparator == "" {
		opts.PageSeparator = "\n\n"
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Service{
		rasterizer:  rasterizer,
		transcriber: transcriber,
		opts:        opts,
		logger:      logger.WithComponent("extract"),
	}
}

// Extract runs the full pipeline for one uploaded document. Progress events
// are emitted on events when non-nil; emission never blocks. On failure the
// returned error names the failing stage through its domain error type.
func (s *Service) Extract(ctx context.Context, doc domain.UploadedDocument, events chan<- domain.Event) (*domain.ExtractionOutcome, error) {
	start := time.Now()

	s.emit(events, domain.Event{
		Type:      domain.EventStart,
		Message:   fmt.Sprintf("starting extraction of %s (%d bytes)", doc.Name, doc.Size()),
		Timestamp: time.Now(),
	})

	// Validating
	s.emitStage(events, domain.StageValidating)
	if err := pdf.ValidateUpload(doc, s.opts.MaxUploadBytes); err != nil {
		return nil, s.fail(events, err)
	}

	// Rasterizing
	s.emitStage(events, domain.StageRasterizing)
	s.logger.Info().Str("document", doc.Name).Msg("rasterizing document")
	images, err := s.rasterizer.Rasterize(ctx, doc.Data, s.opts.RasterDPI)
	if err != nil {
		return nil, s.fail(events, err)
	}
	s.logger.Info().Int("pages", len(images)).Msg("rasterized document")

	// Transcribing
	s.emitStage(events, domain.StageTranscribing)
	results, err := s.transcribePages(ctx, images, events)
	if err != nil {
		return nil, s.fail(events, err)
	}

	// Joining
	s.emitStage(events, domain.StageJoining)
	outcome := s.join(results)
	outcome.Duration = time.Since(start)

	if outcome.AllPagesFailed() {
		err := domain.TranscriptionError(domain.TranscriptionKindRemote,
			fmt.Sprintf("all %d pages failed to transcribe", outcome.PageCount), nil)
		return nil, s.fail(events, err)
	}

	s.emit(events, domain.Event{
		Type:  domain.EventComplete,
		Stage: domain.StageDone,
		Message: fmt.Sprintf("extracted %d/%d pages in %s",
			outcome.PageCount-len(outcome.PageErrors), outcome.PageCount,
			outcome.Duration.Round(time.Millisecond)),
		Timestamp: time.Now(),
	})
	s.logger.Info().
		Int("pages", outcome.PageCount).
		Int("failed", len(outcome.PageErrors)).
		Dur("duration", outcome.Duration).
		Msg("extraction complete")

	return outcome, nil
}

// transcribePages runs the per-page transcription calls through a bounded
// worker pool. Results are collected keyed by page index so the join stage
// sees them in page order regardless of completion order. Page image
// buffers are released as each page completes so peak memory stays near one
// document's worth of images.
func (s *Service) transcribePages(ctx context.Context, images []domain.PageImage, events chan<- domain.Event) ([]domain.PageText, error) {
	total := len(images)
	results := make([]domain.PageText, total)

	workers := s.opts.PageConcurrency
	if workers > total {
		workers = total
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		abortErr error
		abortMu  sync.Mutex
	)
	jobs := make(chan int)

	abort := func(err error) {
		abortMu.Lock()
		if abortErr == nil {
			abortErr = err
		}
		abortMu.Unlock()
		cancel()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				img := images[i]
				s.emit(events, domain.Event{
					Type:       domain.EventPageStart,
					Stage:      domain.StageTranscribing,
					PageNumber: img.PageNumber,
					TotalPages: total,
					Timestamp:  time.Now(),
				})

				text, err := s.transcriber.Transcribe(ctx, img)
				images[i].Data = nil
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					s.logger.Error().Int("page", img.PageNumber).Err(err).Msg("page transcription failed")
					results[i] = domain.PageText{PageNumber: img.PageNumber, Err: err}
					s.emit(events, domain.Event{
						Type:       domain.EventPageFailed,
						Stage:      domain.StageTranscribing,
						PageNumber: img.PageNumber,
						TotalPages: total,
						Message:    err.Error(),
						Timestamp:  time.Now(),
					})
					if !s.opts.ContinueOnPageError {
						abort(fmt.Errorf("page %d: %w", img.PageNumber, err))
						return
					}
					continue
				}

				results[i] = domain.PageText{PageNumber: img.PageNumber, Text: text}
				s.emit(events, domain.Event{
					Type:       domain.EventPageDone,
					Stage:      domain.StageTranscribing,
					PageNumber: img.PageNumber,
					TotalPages: total,
					Timestamp:  time.Now(),
				})
			}
		}()
	}

feed:
	for i := range images {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	abortMu.Lock()
	err := abortErr
	abortMu.Unlock()
	if err != nil {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return results, nil
}

// join concatenates successful page texts in page order, separated by the
// page-boundary marker, and records per-page errors.
func (s *Service) join(results []domain.PageText) *domain.ExtractionOutcome {
	var (
		texts  []string
		errors []domain.PageError
	)
	for _, r := range results {
		if r.Err != nil {
			errors = append(errors, domain.PageError{
				PageNumber: r.PageNumber,
				Message:    r.Err.Error(),
			})
			continue
		}
		texts = append(texts, r.Text)
	}

	return &domain.ExtractionOutcome{
		Text:       strings.Join(texts, s.opts.PageSeparator),
		PageCount:  len(results),
		PageErrors: errors,
	}
}

// fail emits an error event naming the failing stage and passes the error
// through.
func (s *Service) fail(events chan<- domain.Event, err error) error {
	s.logger.Error().Err(err).Msg("extraction failed")
	s.emit(events, domain.Event{
		Type:      domain.EventError,
		Stage:     domain.StageFailed,
		Message:   err.Error(),
		Timestamp: time.Now(),
	})
	return err
}

func (s *Service) emitStage(events chan<- domain.Event, stage domain.Stage) {
	s.emit(events, domain.Event{
		Type:      domain.EventStage,
		Stage:     stage,
		Timestamp: time.Now(),
	})
}

// emit sends an event without blocking; a lagging consumer loses events
// rather than stalling the pipeline.
func (s *Service) emit(events chan<- domain.Event, event domain.Event) {
	if events == nil {
		return
	}
	select {
	case events <- event:
	default:
		s.logger.Warn().Str("type", string(event.Type)).Msg("event channel full, dropping event")
	}
}
