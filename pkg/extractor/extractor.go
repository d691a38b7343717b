// Package extractor is the public entry point for embedding pdftext's
// PDF-to-text pipeline in other programs.
package extractor

import (
	"context"

	"github.com/pagelens/pdftext/internal/config"
	"github.com/pagelens/pdftext/internal/domain"
	"github.com/pagelens/pdftext/internal/extract"
	"github.com/pagelens/pdftext/internal/llm"
	"github.com/pagelens/pdftext/internal/observability"
	"github.com/pagelens/pdftext/internal/pdf"
)

// Re-export core types for the public API.
type (
	Event             = domain.Event
	EventType         = domain.EventType
	Stage             = domain.Stage
	ExtractionOutcome = domain.ExtractionOutcome
	PageError         = domain.PageError
)

// Event type constants
const (
	EventStart      = domain.EventStart
	EventStage      = domain.EventStage
	EventPageStart  = domain.EventPageStart
	EventPageDone   = domain.EventPageDone
	EventPageFailed = domain.EventPageFailed
	EventError      = domain.EventError
	EventComplete   = domain.EventComplete
)

// Client is the main entry point for the pdftext library.
type Client struct {
	service *extract.Service
}

// New creates a client from the environment (DEEPINFRA_API_KEY and
// friends, see the config package).
func New() (*Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, nil)
}

// NewWithConfig creates a client with explicit configuration. A nil logger
// disables logging.
func NewWithConfig(cfg *config.Config, logger *observability.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domain.ConfigError("missing API key", nil)
	}
	if logger == nil {
		logger = observability.Nop()
	}

	transcriber := llm.NewClient(llm.Options{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.RequestTimeout,
	})
	service := extract.NewService(pdf.NewRasterizer(), transcriber, extract.Options{
		RasterDPI:           cfg.RasterDPI,
		MaxUploadBytes:      cfg.MaxUploadBytes,
		PageConcurrency:     cfg.PageConcurrency,
		ContinueOnPageError: cfg.ContinueOnPageError,
		PageSeparator:       cfg.PageSeparator,
	}, logger)

	return &Client{service: service}, nil
}

// Extract runs the pipeline synchronously and returns the outcome.
func (c *Client) Extract(ctx context.Context, name string, data []byte) (*ExtractionOutcome, error) {
	return c.service.Extract(ctx, domain.UploadedDocument{Name: name, Data: data}, nil)
}

// Process runs the pipeline in the background and returns a channel that
// streams progress events. A failed run ends with an EventError event; a
// successful one with EventComplete.
func (c *Client) Process(ctx context.Context, name string, data []byte) <-chan Event {
	events := make(chan Event, 128)
	go func() {
		defer close(events)
		_, _ = c.service.Extract(ctx, domain.UploadedDocument{Name: name, Data: data}, events)
	}()
	return events
}
