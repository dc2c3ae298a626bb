package errors

import "fmt"

// ErrorType classifies radar errors so callers can branch on failure
// modes without string matching.
type ErrorType string

const (
	ErrorTypeUsage       ErrorType = "usage"
	ErrorTypeParser      ErrorType = "parser"
	ErrorTypeDetector    ErrorType = "detector"
	ErrorTypeObjectStore ErrorType = "object_store"
	ErrorTypeEvidence    ErrorType = "evidence"
	ErrorTypeInternal    ErrorType = "internal"
)

// RadarError is an application error with a type, a stable code and an
// optional wrapped cause.
type RadarError struct {
	Type    ErrorType         `json:"type"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Cause   error             `json:"-"`
}

// Error implements the error interface.
func (e *RadarError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *RadarError) Unwrap() error {
	return e.Cause
}

// WithCause attaches a cause to the error.
func (e *RadarError) WithCause(cause error) *RadarError {
	e.Cause = cause
	return e
}

// WithDetail attaches a key/value detail to the error.
func (e *RadarError) WithDetail(key, value string) *RadarError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a RadarError of the given type.
func New(errorType ErrorType, code, message string) *RadarError {
	return &RadarError{Type: errorType, Code: code, Message: message}
}

// NewUsageError reports invalid CLI or configuration input.
func NewUsageError(message string) *RadarError {
	return New(ErrorTypeUsage, "USAGE_ERROR", message)
}

// NewParserError reports a missing project root or malformed manifest.
func NewParserError(message string) *RadarError {
	return New(ErrorTypeParser, "PARSER_ERROR", message)
}

// NewDetectorError reports a detector failure; the orchestrator converts
// these into synthetic findings rather than aborting the run.
func NewDetectorError(detector, message string) *RadarError {
	return New(ErrorTypeDetector, "DETECTOR_ERROR", message).WithDetail("detector", detector)
}

// NewObjectStoreError reports an object-store write or copy failure.
func NewObjectStoreError(message string) *RadarError {
	return New(ErrorTypeObjectStore, "OBJECT_STORE_ERROR", message)
}

// NewEvidenceError reports an evidence-pack build failure.
func NewEvidenceError(message string) *RadarError {
	return New(ErrorTypeEvidence, "EVIDENCE_ERROR", message)
}

// NewInternalError reports an unexpected internal failure.
func NewInternalError(message string) *RadarError {
	return New(ErrorTypeInternal, "INTERNAL_ERROR", message)
}

// IsType reports whether err is a RadarError of the given type.
func IsType(err error, errorType ErrorType) bool {
	if radarErr, ok := err.(*RadarError); ok {
		return radarErr.Type == errorType
	}
	return false
}

// GetCode returns the error code, or "UNKNOWN_ERROR" for foreign errors.
func GetCode(err error) string {
	if radarErr, ok := err.(*RadarError); ok {
		return radarErr.Code
	}
	return "UNKNOWN_ERROR"
}
