package domain

import (
	"fmt"
	"time"
)

// EmbeddingJobStatus represents the status of an embedding job
type EmbeddingJobStatus string

const (
	EmbeddingJobStatusPending    EmbeddingJobStatus = "pending"
	EmbeddingJobStatusProcessing EmbeddingJobStatus = "processing"
	EmbeddingJobStatusCompleted  EmbeddingJobStatus = "completed"
	EmbeddingJobStatusFailed     EmbeddingJobStatus = "failed"
)

// EmbeddingJob represents an async job that embeds a note's summary for
// semantic search. Jobs are queued when a note is created or its summary is
// edited.
type EmbeddingJob struct {
	ID          string
	NoteID      string
	Status      EmbeddingJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// ValidateEmbeddingJob validates an EmbeddingJob instance
func ValidateEmbeddingJob(j *EmbeddingJob) error {
	if j == nil {
		return fmt.Errorf("embedding job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("embedding job ID is required")
	}

	if j.NoteID == "" {
		return fmt.Errorf("embedding job NoteID is required")
	}

	if !isValidEmbeddingJobStatus(j.Status) {
		return fmt.Errorf("embedding job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("embedding job Retries cannot be negative")
	}

	return nil
}

// isValidEmbeddingJobStatus checks if an EmbeddingJobStatus is valid
func isValidEmbeddingJobStatus(s EmbeddingJobStatus) bool {
	switch s {
	case EmbeddingJobStatusPending, EmbeddingJobStatusProcessing,
		EmbeddingJobStatusCompleted, EmbeddingJobStatusFailed:
		return true
	}
	return false
}
