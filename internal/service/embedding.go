package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/autonote-app/autonote/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingNoteRepository defines the repository interface for embedding operations
type EmbeddingNoteRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Note, error)
	SetEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingService generates and stores summary embeddings for notes. It is
// driven by the background worker, never by a request handler.
type EmbeddingService struct {
	client EmbeddingClient
	repo   EmbeddingNoteRepository
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, repo EmbeddingNoteRepository) *EmbeddingService {
	return &EmbeddingService{
		client: client,
		repo:   repo,
	}
}

// GenerateEmbedding generates and stores an embedding for the given note ID
func (s *EmbeddingService) GenerateEmbedding(ctx context.Context, noteID string) error {
	note, err := s.repo.GetByID(ctx, noteID)
	if err != nil {
		return err
	}

	text := buildEmbeddingText(note)
	if text == "" {
		return fmt.Errorf("note %s has no text to embed", noteID)
	}

	embedding, err := s.client.GenerateEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := s.repo.SetEmbedding(ctx, noteID, embedding); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}

	return nil
}

// buildEmbeddingText assembles the searchable text of a note: title, summary
// and key points. The raw transcript is deliberately left out; it is long,
// repetitive, and dilutes the summary signal.
func buildEmbeddingText(n *domain.Note) string {
	var parts []string

	if n.Title != "" {
		parts = append(parts, n.Title)
	}
	if n.Summary != "" {
		parts = append(parts, n.Summary)
	}
	if len(n.KeyPoints) > 0 {
		parts = append(parts, strings.Join(n.KeyPoints, "\n"))
	}

	return strings.Join(parts, "\n\n")
}
