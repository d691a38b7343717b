package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeConfig        ErrorType = "config"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeRasterization ErrorType = "rasterization"
	ErrorTypeTranscription ErrorType = "transcription"
	ErrorTypeIO            ErrorType = "io"
)

// TranscriptionKind distinguishes remote transcription failure causes.
type TranscriptionKind string

const (
	TranscriptionKindAuth      TranscriptionKind = "auth"
	TranscriptionKindRateLimit TranscriptionKind = "rate_limit"
	TranscriptionKindMalformed TranscriptionKind = "malformed_response"
	TranscriptionKindRemote    TranscriptionKind = "remote"
)

// DomainError represents a domain-specific error with context.
// Kind is only set for transcription errors.
type DomainError struct {
	Type    ErrorType
	Kind    TranscriptionKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.label(), e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.label(), e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) label() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s/%s", e.Type, e.Kind)
	}
	return string(e.Type)
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func RasterizationError(message string, err error) *DomainError {
	return NewError(ErrorTypeRasterization, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

// TranscriptionError creates a transcription error of the given kind.
func TranscriptionError(kind TranscriptionKind, message string, err error) *DomainError {
	return &DomainError{
		Type:    ErrorTypeTranscription,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// ErrType returns the domain error type of err, or "" when err is not a
// DomainError.
func ErrType(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// TranscriptionErrKind returns the transcription failure kind of err, or ""
// when err is not a transcription error.
func TranscriptionErrKind(err error) TranscriptionKind {
	var de *DomainError
	if errors.As(err, &de) && de.Type == ErrorTypeTranscription {
		return de.Kind
	}
	return ""
}
