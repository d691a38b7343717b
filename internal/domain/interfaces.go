package domain

import "context"

// Rasterizer defines the interface for converting PDF bytes to page images.
type Rasterizer interface {
	// Rasterize turns a PDF into an ordered slice of page images.
	// Page order matches the document; indices are 1-based.
	Rasterize(ctx context.Context, data []byte, dpi int) ([]PageImage, error)
}

// Transcriber defines the interface for transcribing a single page image.
type Transcriber interface {
	// Transcribe sends one page image to the vision model and returns
	// the verbatim page text.
	Transcribe(ctx context.Context, image PageImage) (string, error)
}

// Pipeline orchestrates validation, rasterization, transcription and joining.
type Pipeline interface {
	// Extract runs the complete workflow for one uploaded document.
	// Progress events are emitted on events when non-nil.
	Extract(ctx context.Context, doc UploadedDocument, events chan<- Event) (*ExtractionOutcome, error)
}
