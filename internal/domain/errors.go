package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeDetection  ErrorType = "detection"
	ErrorTypeAnalysis   ErrorType = "analysis"
	ErrorTypeAPI        ErrorType = "api"
	ErrorTypeRendering  ErrorType = "rendering"
	ErrorTypeFilesystem ErrorType = "filesystem"
	ErrorTypeConfig     ErrorType = "config"
)

var (
	// ErrPageOutOfRange is returned by a page source for an index outside [0, pageCount).
	ErrPageOutOfRange = errors.New("page index out of range")
	// ErrUnsupportedFile is returned for paths whose extension is not in the allow-list.
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrBusy is returned when a foreground submission is made while one is in flight.
	ErrBusy = errors.New("processing already in progress")
	// ErrNotRunning is returned when an operation needs a running worker.
	ErrNotRunning = errors.New("worker is not running")
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether any error in err's chain is a DomainError of type t.
func IsType(err error, t ErrorType) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == t
	}
	return false
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func DetectionError(message string, err error) *DomainError {
	return NewError(ErrorTypeDetection, message, err)
}

func AnalysisError(message string, err error) *DomainError {
	return NewError(ErrorTypeAnalysis, message, err)
}

func APIError(message string, err error) *DomainError {
	return NewError(ErrorTypeAPI, message, err)
}

func RenderingError(message string, err error) *DomainError {
	return NewError(ErrorTypeRendering, message, err)
}

func FilesystemError(message string, err error) *DomainError {
	return NewError(ErrorTypeFilesystem, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}
