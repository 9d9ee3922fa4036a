package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/autonote-app/autonote/internal/domain"
)

const defaultSearchLimit = 10

// SearchNoteRepository defines the repository interface for vector search
type SearchNoteRepository interface {
	SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*NoteSearchResult, error)
}

// NoteSearchResult is one semantic search hit.
type NoteSearchResult struct {
	Note       *domain.Note
	Similarity float64
}

// SearchService answers free-text queries against the notes' summary
// embeddings.
type SearchService struct {
	client EmbeddingClient
	repo   SearchNoteRepository
}

// NewSearchService creates a new SearchService instance
func NewSearchService(client EmbeddingClient, repo SearchNoteRepository) *SearchService {
	return &SearchService{
		client: client,
		repo:   repo,
	}
}

// Search embeds the query and returns the closest notes by cosine similarity.
// Notes whose embedding job has not completed yet are not found.
func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]*NoteSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "search query cannot be empty")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	embedding, err := s.client.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return s.repo.SearchByEmbedding(ctx, embedding, limit)
}
