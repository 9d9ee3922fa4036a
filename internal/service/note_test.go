package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/autonote-app/autonote/internal/domain"
	"github.com/autonote-app/autonote/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNoteRepository is a mock implementation of NoteRepositoryInterface
type MockNoteRepository struct {
	mock.Mock
}

func (m *MockNoteRepository) Create(ctx context.Context, note *domain.Note) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockNoteRepository) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Note), args.Error(1)
}

func (m *MockNoteRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*NotePageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*NotePageResult), args.Error(1)
}

func (m *MockNoteRepository) UpdateEditable(ctx context.Context, id string, update *domain.NoteUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockNoteRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEmbeddingJobRepo is a mock implementation of EmbeddingJobRepositoryInterface
type MockEmbeddingJobRepo struct {
	mock.Mock
}

func (m *MockEmbeddingJobRepo) Create(ctx context.Context, job *domain.EmbeddingJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockAudioObjectStore is a mock implementation of AudioObjectStore
type MockAudioObjectStore struct {
	mock.Mock
}

func (m *MockAudioObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAudioObjectStore) PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error) {
	args := m.Called(ctx, key, expires)
	return args.String(0), args.Error(1)
}

func validNote() *domain.Note {
	return &domain.Note{
		ID:         "note-1",
		Title:      "Cell Energy",
		AudioKey:   "recordings/cell-energy.m4a",
		DurationMS: 60_000,
		Date:       time.Now().UTC(),
		Transcript: "mitochondria produce energy",
		Summary:    "How cells produce energy.",
		Timeline: []domain.WordTimestamp{
			{Word: "mitochondria", Start: 0.5, End: 1.2},
			{Word: "produce", Start: 1.3, End: 1.7},
			{Word: "energy", Start: 1.8, End: 2.3},
		},
	}
}

func TestNoteService_Create_QueuesEmbeddingJob(t *testing.T) {
	noteRepo := new(MockNoteRepository)
	jobRepo := new(MockEmbeddingJobRepo)
	audio := new(MockAudioObjectStore)

	note := validNote()
	noteRepo.On("Create", mock.Anything, note).Return(nil)

	var queued *domain.EmbeddingJob
	jobRepo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		queued = args.Get(1).(*domain.EmbeddingJob)
	}).Return(nil)

	svc := NewNoteService(noteRepo, jobRepo, audio)
	err := svc.Create(context.Background(), note)

	require.NoError(t, err)
	require.NotNil(t, queued)
	assert.Equal(t, "note-1", queued.NoteID)
	assert.Equal(t, domain.EmbeddingJobStatusPending, queued.Status)
	noteRepo.AssertExpectations(t)
}

func TestNoteService_Create_InvalidNote(t *testing.T) {
	noteRepo := new(MockNoteRepository)
	svc := NewNoteService(noteRepo, new(MockEmbeddingJobRepo), new(MockAudioObjectStore))

	note := validNote()
	note.Title = ""

	err := svc.Create(context.Background(), note)

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	noteRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestNoteService_Create_JobQueueFailureIsNonFatal(t *testing.T) {
	noteRepo := new(MockNoteRepository)
	jobRepo := new(MockEmbeddingJobRepo)

	note := validNote()
	noteRepo.On("Create", mock.Anything, note).Return(nil)
	jobRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert failed"))

	svc := NewNoteService(noteRepo, jobRepo, new(MockAudioObjectStore))
	err := svc.Create(context.Background(), note)

	assert.NoError(t, err)
}

func TestNoteService_List_InvalidCursor(t *testing.T) {
	svc := NewNoteService(new(MockNoteRepository), new(MockEmbeddingJobRepo), new(MockAudioObjectStore))

	_, err := svc.List(context.Background(), ListNotesInput{Cursor: "garbage!!!"})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestNoteService_List_PassesCursorThrough(t *testing.T) {
	noteRepo := new(MockNoteRepository)
	page := &NotePageResult{
		Items:      []*domain.Note{validNote()},
		NextCursor: "next",
		HasMore:    true,
	}
	noteRepo.On("ListWithCursor", mock.Anything, (*pagination.Cursor)(nil), 20).Return(page, nil)

	svc := NewNoteService(noteRepo, new(MockEmbeddingJobRepo), new(MockAudioObjectStore))
	out, err := svc.List(context.Background(), ListNotesInput{Limit: 20})

	require.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, "next", out.Cursor)
	assert.True(t, out.HasMore)
}

func TestNoteService_Update_EditableFields(t *testing.T) {
	noteRepo := new(MockNoteRepository)
	jobRepo := new(MockEmbeddingJobRepo)

	summary := "A better summary."
	update := &domain.NoteUpdate{Summary: &summary}
	noteRepo.On("UpdateEditable", mock.Anything, "note-1", update).Return(nil)
	noteRepo.On("GetByID", mock.Anything, "note-1").Return(validNote(), nil)
	jobRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := NewNoteService(noteRepo, jobRepo, new(MockAudioObjectStore))
	note, err := svc.Update(context.Background(), "note-1", update)

	require.NoError(t, err)
	assert.NotNil(t, note)
	// summary edits re-embed
	jobRepo.AssertCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestNoteService_Update_NotesOnlyEditSkipsReembedding(t *testing.T) {
	noteRepo := new(MockNoteRepository)
	jobRepo := new(MockEmbeddingJobRepo)

	notes := "my own annotations"
	update := &domain.NoteUpdate{Notes: &notes}
	noteRepo.On("UpdateEditable", mock.Anything, "note-1", update).Return(nil)
	noteRepo.On("GetByID", mock.Anything, "note-1").Return(validNote(), nil)

	svc := NewNoteService(noteRepo, jobRepo, new(MockAudioObjectStore))
	_, err := svc.Update(context.Background(), "note-1", update)

	require.NoError(t, err)
	jobRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestNoteService_Update_EmptyUpdate(t *testing.T) {
	svc := NewNoteService(new(MockNoteRepository), new(MockEmbeddingJobRepo), new(MockAudioObjectStore))

	_, err := svc.Update(context.Background(), "note-1", &domain.NoteUpdate{})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestNoteService_Update_EmptyTitleRejected(t *testing.T) {
	svc := NewNoteService(new(MockNoteRepository), new(MockEmbeddingJobRepo), new(MockAudioObjectStore))

	title := ""
	_, err := svc.Update(context.Background(), "note-1", &domain.NoteUpdate{Title: &title})

	require.Error(t, err)
}

func TestNoteService_Delete_RemovesAudio(t *testing.T) {
	noteRepo := new(MockNoteRepository)
	audio := new(MockAudioObjectStore)

	note := validNote()
	noteRepo.On("GetByID", mock.Anything, "note-1").Return(note, nil)
	noteRepo.On("Delete", mock.Anything, "note-1").Return(nil)
	audio.On("Delete", mock.Anything, note.AudioKey).Return(nil)

	svc := NewNoteService(noteRepo, new(MockEmbeddingJobRepo), audio)
	err := svc.Delete(context.Background(), "note-1")

	require.NoError(t, err)
	audio.AssertExpectations(t)
}

func TestNoteService_Delete_AudioFailureIsNonFatal(t *testing.T) {
	noteRepo := new(MockNoteRepository)
	audio := new(MockAudioObjectStore)

	note := validNote()
	noteRepo.On("GetByID", mock.Anything, "note-1").Return(note, nil)
	noteRepo.On("Delete", mock.Anything, "note-1").Return(nil)
	audio.On("Delete", mock.Anything, note.AudioKey).Return(errors.New("access denied"))

	svc := NewNoteService(noteRepo, new(MockEmbeddingJobRepo), audio)
	err := svc.Delete(context.Background(), "note-1")

	assert.NoError(t, err)
}

func TestNoteService_Delete_NotFound(t *testing.T) {
	noteRepo := new(MockNoteRepository)
	noteRepo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrNoteNotFound)

	svc := NewNoteService(noteRepo, new(MockEmbeddingJobRepo), new(MockAudioObjectStore))
	err := svc.Delete(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNoteNotFound)
}

func TestNoteService_AudioURL(t *testing.T) {
	noteRepo := new(MockNoteRepository)
	audio := new(MockAudioObjectStore)

	note := validNote()
	noteRepo.On("GetByID", mock.Anything, "note-1").Return(note, nil)
	audio.On("PresignDownload", mock.Anything, note.AudioKey, 15*time.Minute).
		Return("https://storage.example.com/signed", nil)

	svc := NewNoteService(noteRepo, new(MockEmbeddingJobRepo), audio)
	url, err := svc.AudioURL(context.Background(), "note-1", 15*time.Minute)

	require.NoError(t, err)
	assert.Equal(t, "https://storage.example.com/signed", url)
}

func TestNoteService_AudioURL_NoAudio(t *testing.T) {
	noteRepo := new(MockNoteRepository)

	note := validNote()
	note.AudioKey = ""
	noteRepo.On("GetByID", mock.Anything, "note-1").Return(note, nil)

	svc := NewNoteService(noteRepo, new(MockEmbeddingJobRepo), new(MockAudioObjectStore))
	_, err := svc.AudioURL(context.Background(), "note-1", time.Minute)

	assert.ErrorIs(t, err, domain.ErrMissingRecordingAudio)
}

func TestNoteService_Segments(t *testing.T) {
	noteRepo := new(MockNoteRepository)
	noteRepo.On("GetByID", mock.Anything, "note-1").Return(validNote(), nil)

	svc := NewNoteService(noteRepo, new(MockEmbeddingJobRepo), new(MockAudioObjectStore))
	segments, err := svc.Segments(context.Background(), "note-1")

	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, 0.5, segments[0].Start)
	assert.Equal(t, "mitochondria produce energy", segments[0].Text)
}

// testTxRunner runs the callback against plain repositories, recording that a
// transaction was requested.
type testTxRunner struct {
	notes  NoteRepositoryInterface
	jobs   EmbeddingJobRepositoryInterface
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t)
}

func (t *testTxRunner) Notes() NoteRepositoryInterface                 { return t.notes }
func (t *testTxRunner) EmbeddingJobs() EmbeddingJobRepositoryInterface { return t.jobs }

func TestNoteService_Create_UsesTransactionWhenConfigured(t *testing.T) {
	noteRepo := new(MockNoteRepository)
	jobRepo := new(MockEmbeddingJobRepo)

	note := validNote()
	noteRepo.On("Create", mock.Anything, note).Return(nil)
	jobRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	runner := &testTxRunner{notes: noteRepo, jobs: jobRepo}
	svc := NewNoteServiceWithTx(noteRepo, jobRepo, new(MockAudioObjectStore), runner)
	err := svc.Create(context.Background(), note)

	require.NoError(t, err)
	assert.True(t, runner.called)
}

func TestNoteService_Create_TransactionalJobFailureFails(t *testing.T) {
	noteRepo := new(MockNoteRepository)
	jobRepo := new(MockEmbeddingJobRepo)

	note := validNote()
	noteRepo.On("Create", mock.Anything, note).Return(nil)
	jobRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert failed"))

	runner := &testTxRunner{notes: noteRepo, jobs: jobRepo}
	svc := NewNoteServiceWithTx(noteRepo, jobRepo, new(MockAudioObjectStore), runner)
	err := svc.Create(context.Background(), note)

	assert.Error(t, err)
}
