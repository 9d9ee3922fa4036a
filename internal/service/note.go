package service

import (
	"context"
	"log"
	"time"

	"github.com/autonote-app/autonote/internal/domain"
	"github.com/autonote-app/autonote/internal/pagination"
	"github.com/autonote-app/autonote/internal/telemetry"
	"github.com/autonote-app/autonote/internal/timeline"
	"github.com/google/uuid"
)

// NoteRepositoryInterface defines the repository interface for note persistence
type NoteRepositoryInterface interface {
	Create(ctx context.Context, note *domain.Note) error
	GetByID(ctx context.Context, id string) (*domain.Note, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*NotePageResult, error)
	UpdateEditable(ctx context.Context, id string, update *domain.NoteUpdate) error
	Delete(ctx context.Context, id string) error
}

type NotePageResult struct {
	Items      []*domain.Note
	NextCursor string
	HasMore    bool
}

// EmbeddingJobRepositoryInterface defines the repository interface for embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// AudioObjectStore is the object storage surface the note service needs:
// removing a deleted note's recording and issuing download links.
type AudioObjectStore interface {
	Delete(ctx context.Context, key string) error
	PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// NoteService handles business logic for saved notes. Creation happens once,
// at the end of a successful pipeline run; afterwards only the user-editable
// fields may change.
type NoteService struct {
	noteRepo         NoteRepositoryInterface
	embeddingJobRepo EmbeddingJobRepositoryInterface
	audio            AudioObjectStore
	uuidGen          UUIDGenerator
	txRunner         TxRunner
}

// NewNoteService creates a new NoteService instance
func NewNoteService(
	noteRepo NoteRepositoryInterface,
	embeddingJobRepo EmbeddingJobRepositoryInterface,
	audio AudioObjectStore,
) *NoteService {
	return &NoteService{
		noteRepo:         noteRepo,
		embeddingJobRepo: embeddingJobRepo,
		audio:            audio,
		uuidGen:          &DefaultUUIDGenerator{},
	}
}

// NewNoteServiceWithTx creates a NoteService that writes the note and its
// embedding job in one transaction.
func NewNoteServiceWithTx(
	noteRepo NoteRepositoryInterface,
	embeddingJobRepo EmbeddingJobRepositoryInterface,
	audio AudioObjectStore,
	txRunner TxRunner,
) *NoteService {
	s := NewNoteService(noteRepo, embeddingJobRepo, audio)
	s.txRunner = txRunner
	return s
}

// NewNoteServiceWithUUIDGen creates a new NoteService with custom UUID generator (for testing)
func NewNoteServiceWithUUIDGen(
	noteRepo NoteRepositoryInterface,
	embeddingJobRepo EmbeddingJobRepositoryInterface,
	audio AudioObjectStore,
	uuidGen UUIDGenerator,
) *NoteService {
	return &NoteService{
		noteRepo:         noteRepo,
		embeddingJobRepo: embeddingJobRepo,
		audio:            audio,
		uuidGen:          uuidGen,
	}
}

type ListNotesInput struct {
	Cursor string
	Limit  int
}

type ListNotesOutput struct {
	Items   []*domain.Note
	Cursor  string
	HasMore bool
}

// Create persists a finished note and queues its summary for embedding.
func (s *NoteService) Create(ctx context.Context, note *domain.Note) error {
	ctx, span := telemetry.StartSpan(ctx, "NoteService.Create", telemetry.SpanAttributes{
		NoteID:    note.ID,
		Operation: "create",
	})
	defer span.End()

	if err := domain.ValidateNote(note); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid note", err)
	}

	if s.txRunner != nil {
		err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Notes().Create(ctx, note); err != nil {
				return err
			}
			return repos.EmbeddingJobs().Create(ctx, s.newEmbeddingJob(note.ID))
		})
		if err != nil {
			span.SetError(err)
		}
		return err
	}

	if err := s.noteRepo.Create(ctx, note); err != nil {
		span.SetError(err)
		return err
	}

	s.queueEmbeddingJob(ctx, note.ID)
	return nil
}

// Get returns the note by id.
func (s *NoteService) Get(ctx context.Context, id string) (*domain.Note, error) {
	return s.noteRepo.GetByID(ctx, id)
}

// List returns a page of notes, newest first.
func (s *NoteService) List(ctx context.Context, input ListNotesInput) (*ListNotesOutput, error) {
	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	page, err := s.noteRepo.ListWithCursor(ctx, cursor, input.Limit)
	if err != nil {
		return nil, err
	}
	return &ListNotesOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// Update applies the user-editable fields and returns the updated note.
// Transcript, timeline, audio key, duration and date never change here.
func (s *NoteService) Update(ctx context.Context, id string, update *domain.NoteUpdate) (*domain.Note, error) {
	ctx, span := telemetry.StartSpan(ctx, "NoteService.Update", telemetry.SpanAttributes{
		NoteID:    id,
		Operation: "update",
	})
	defer span.End()

	if update == nil || (update.Title == nil && update.Summary == nil &&
		update.KeyPoints == nil && update.ActionItems == nil && update.Notes == nil) {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "no editable fields in update")
	}
	if update.Title != nil && *update.Title == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "title cannot be empty")
	}

	if err := s.noteRepo.UpdateEditable(ctx, id, update); err != nil {
		span.SetError(err)
		return nil, err
	}

	// re-embed when the searchable text changed
	if update.Title != nil || update.Summary != nil || update.KeyPoints != nil {
		s.queueEmbeddingJob(ctx, id)
	}

	return s.noteRepo.GetByID(ctx, id)
}

// Delete removes the note and best-effort deletes its stored audio.
func (s *NoteService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "NoteService.Delete", telemetry.SpanAttributes{
		NoteID:    id,
		Operation: "delete",
	})
	defer span.End()

	note, err := s.noteRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.noteRepo.Delete(ctx, id); err != nil {
		span.SetError(err)
		return err
	}

	if note.AudioKey != "" {
		if err := s.audio.Delete(ctx, note.AudioKey); err != nil {
			log.Printf("note %s deleted but audio object %s was not: %v", id, note.AudioKey, err)
		}
	}
	return nil
}

// AudioURL returns a short-lived download URL for the note's recording.
func (s *NoteService) AudioURL(ctx context.Context, id string, expires time.Duration) (string, error) {
	note, err := s.noteRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if note.AudioKey == "" {
		return "", domain.ErrMissingRecordingAudio
	}
	return s.audio.PresignDownload(ctx, note.AudioKey, expires)
}

// Segments returns the note's transcript broken into display-sized chunks.
// Segments are derived on demand from the stored word timeline.
func (s *NoteService) Segments(ctx context.Context, id string) ([]domain.TimelineSegment, error) {
	note, err := s.noteRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return timeline.Chunk(note.Timeline), nil
}

func (s *NoteService) newEmbeddingJob(noteID string) *domain.EmbeddingJob {
	return &domain.EmbeddingJob{
		ID:        s.uuidGen.NewString(),
		NoteID:    noteID,
		Status:    domain.EmbeddingJobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// queueEmbeddingJob enqueues a background embedding refresh. Failure to queue
// is logged, not surfaced: the note write already succeeded and search will
// catch up on the next edit.
func (s *NoteService) queueEmbeddingJob(ctx context.Context, noteID string) {
	if err := s.embeddingJobRepo.Create(ctx, s.newEmbeddingJob(noteID)); err != nil {
		log.Printf("failed to queue embedding job for note %s: %v", noteID, err)
	}
}
