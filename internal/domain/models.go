package domain

import "time"

// UploadedDocument is the raw PDF as received from the user. It lives for
// the duration of a single extraction request.
type UploadedDocument struct {
	Name string
	Data []byte
}

// Size returns the document's byte length.
func (d UploadedDocument) Size() int {
	return len(d.Data)
}

// PageImage represents a single rasterized PDF page, JPEG-encoded.
type PageImage struct {
	PageNumber int // 1-based
	Data       []byte
	Width      int
	Height     int
}

// PageText is the transcription result for one page. Err is set when the
// page failed; Text is empty in that case.
type PageText struct {
	PageNumber int
	Text       string
	Err        error
}

// PageError records a per-page transcription failure in the outcome.
type PageError struct {
	PageNumber int    `json:"page_number"`
	Message    string `json:"message"`
}

// ExtractionOutcome is the artifact of one document's processing: the joined
// text, the number of pages processed, and any per-page errors. It is held
// for the interactive session only and never persisted.
type ExtractionOutcome struct {
	Text       string        `json:"text"`
	PageCount  int           `json:"page_count"`
	PageErrors []PageError   `json:"page_errors,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// AllPagesFailed reports whether no page produced text.
func (o *ExtractionOutcome) AllPagesFailed() bool {
	return o.PageCount > 0 && len(o.PageErrors) == o.PageCount
}

// Stage identifies a step of the extraction state machine.
type Stage string

const (
	StageValidating   Stage = "validating"
	StageRasterizing  Stage = "rasterizing"
	StageTranscribing Stage = "transcribing"
	StageJoining      Stage = "joining"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// EventType represents the type of progress event.
type EventType string

const (
	EventStart      EventType = "start"
	EventStage      EventType = "stage"
	EventPageStart  EventType = "page_start"
	EventPageDone   EventType = "page_done"
	EventPageFailed EventType = "page_failed"
	EventError      EventType = "error"
	EventComplete   EventType = "complete"
)

// Event is emitted on the progress channel as an extraction advances.
// PageNumber and TotalPages are set for page-level events.
type Event struct {
	Type       EventType `json:"type"`
	Stage      Stage     `json:"stage,omitempty"`
	PageNumber int       `json:"page_number,omitempty"`
	TotalPages int       `json:"total_pages,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
