package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Pipeline and store error codes. Upload, transcription and persistence
// failures are fatal to the current attempt; configuration errors indicate a
// setup problem rather than a transient one.
const (
	ErrCodeUpload        = "UPLOAD_ERROR"
	ErrCodeTranscription = "TRANSCRIPTION_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodePersistence   = "PERSISTENCE_ERROR"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

var (
	ErrNoteNotFound = NewDomainError(ErrCodeNotFound, "note not found")
	ErrRunNotFound  = NewDomainError(ErrCodeNotFound, "processing run not found")

	ErrRunInFlight = NewDomainError(ErrCodeConflict, "recording already has a run in flight")

	ErrMissingTranscriptionKey = NewDomainError(ErrCodeConfiguration, "transcription API key not configured")
	ErrMissingSummarizationKey = NewDomainError(ErrCodeConfiguration, "summarization API key not configured")
	ErrMissingRecordingAudio   = NewDomainError(ErrCodeValidation, "recording has no audio")
)

// NewUploadError wraps a provider rejection or transport failure during the
// audio upload stage. The provider's reason is kept verbatim.
func NewUploadError(reason string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeUpload, reason, err)
}

// NewTranscriptionError wraps a failed or timed-out transcription job.
func NewTranscriptionError(reason string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeTranscription, reason, err)
}

// NewPersistenceError wraps a note store write failure.
func NewPersistenceError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodePersistence, "note store write failed", err)
}
