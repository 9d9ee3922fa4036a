package service

import (
	"context"
	"errors"
	"testing"

	"github.com/autonote-app/autonote/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockEmbeddingNoteRepo is a mock implementation of EmbeddingNoteRepository
type MockEmbeddingNoteRepo struct {
	mock.Mock
}

func (m *MockEmbeddingNoteRepo) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Note), args.Error(1)
}

func (m *MockEmbeddingNoteRepo) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func TestEmbeddingService_GenerateEmbedding_Success(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockEmbeddingNoteRepo)

	note := validNote()
	note.KeyPoints = []string{"Mitochondria produce energy"}
	embedding := []float32{0.1, 0.2, 0.3}

	repo.On("GetByID", mock.Anything, "note-1").Return(note, nil)
	client.On("GenerateEmbedding", mock.Anything, mock.MatchedBy(func(text string) bool {
		return text != ""
	})).Return(embedding, nil)
	repo.On("SetEmbedding", mock.Anything, "note-1", embedding).Return(nil)

	svc := NewEmbeddingService(client, repo)
	err := svc.GenerateEmbedding(context.Background(), "note-1")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestEmbeddingService_GenerateEmbedding_EmbedsTitleSummaryAndKeyPoints(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockEmbeddingNoteRepo)

	note := validNote()
	note.KeyPoints = []string{"point one", "point two"}

	var embedded string
	repo.On("GetByID", mock.Anything, "note-1").Return(note, nil)
	client.On("GenerateEmbedding", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		embedded = args.String(1)
	}).Return([]float32{0.1}, nil)
	repo.On("SetEmbedding", mock.Anything, "note-1", mock.Anything).Return(nil)

	svc := NewEmbeddingService(client, repo)
	require.NoError(t, svc.GenerateEmbedding(context.Background(), "note-1"))

	assert.Contains(t, embedded, note.Title)
	assert.Contains(t, embedded, note.Summary)
	assert.Contains(t, embedded, "point one")
	assert.NotContains(t, embedded, note.Transcript)
}

func TestEmbeddingService_GenerateEmbedding_NoteNotFound(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockEmbeddingNoteRepo)

	repo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrNoteNotFound)

	svc := NewEmbeddingService(client, repo)
	err := svc.GenerateEmbedding(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNoteNotFound)
	client.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
}

func TestEmbeddingService_GenerateEmbedding_ClientError(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockEmbeddingNoteRepo)

	repo.On("GetByID", mock.Anything, "note-1").Return(validNote(), nil)
	client.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

	svc := NewEmbeddingService(client, repo)
	err := svc.GenerateEmbedding(context.Background(), "note-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate embedding")
	repo.AssertNotCalled(t, "SetEmbedding", mock.Anything, mock.Anything, mock.Anything)
}
