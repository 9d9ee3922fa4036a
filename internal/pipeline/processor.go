// Package pipeline orchestrates the processing of a voice recording: upload
// to the transcription provider, poll to completion, summarize, and persist
// the resulting note. Each run walks a fixed stage sequence and exposes its
// progress to observers.
package pipeline

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/autonote-app/autonote/internal/domain"
	"github.com/autonote-app/autonote/internal/summarize"
	"github.com/autonote-app/autonote/internal/telemetry"
	"github.com/autonote-app/autonote/internal/timeline"
	"github.com/autonote-app/autonote/internal/transcribe"
	"github.com/google/uuid"
)

// Fixed summaries used when summarization cannot produce real content. The
// note is still persisted; a missing summary never fails a run.
const (
	emptyTranscriptSummary = "Transcript empty."
	unavailableSummary     = "Summary unavailable."
)

// Transcriber submits audio and polls the provider's job to completion.
type Transcriber interface {
	Submit(ctx context.Context, audio io.Reader, filename string) (string, error)
	Poll(ctx context.Context, jobID string, onStatus func(status string)) (*transcribe.Result, error)
}

// Summarizer turns a transcript into structured note content.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string, words []domain.WordTimestamp) (*summarize.Result, error)
}

// NoteStore persists the finished note in a single write.
type NoteStore interface {
	Create(ctx context.Context, note *domain.Note) error
}

// AudioStore reads back stored recordings and renames them after processing.
type AudioStore interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Rename(ctx context.Context, oldKey, newKey string) error
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

// Recording is the pipeline's input: audio already held in object storage
// plus the metadata captured at upload time.
type Recording struct {
	ID         string
	AudioKey   string
	FileName   string
	DurationMS int64
}

// Processor runs the stage sequence for one recording at a time. It is
// stateless across runs; per-run state lives in the observer's hands.
type Processor struct {
	transcriber Transcriber
	summarizer  Summarizer
	store       NoteStore
	audio       AudioStore
	uuidGen     UUIDGenerator
	now         func() time.Time
}

// NewProcessor creates a Processor with the default UUID generator and clock.
func NewProcessor(transcriber Transcriber, summarizer Summarizer, store NoteStore, audio AudioStore) *Processor {
	return &Processor{
		transcriber: transcriber,
		summarizer:  summarizer,
		store:       store,
		audio:       audio,
		uuidGen:     &DefaultUUIDGenerator{},
		now:         time.Now,
	}
}

// NewProcessorWithDeps creates a Processor with explicit UUID generator and
// clock (for testing).
func NewProcessorWithDeps(
	transcriber Transcriber,
	summarizer Summarizer,
	store NoteStore,
	audio AudioStore,
	uuidGen UUIDGenerator,
	now func() time.Time,
) *Processor {
	return &Processor{
		transcriber: transcriber,
		summarizer:  summarizer,
		store:       store,
		audio:       audio,
		uuidGen:     uuidGen,
		now:         now,
	}
}

// Process executes one full attempt for the recording. observe is invoked on
// every state change, including the terminal one. The returned note is nil
// when the run fails; upload, transcription and persistence failures are
// fatal, a summarization failure is not.
func (p *Processor) Process(ctx context.Context, rec Recording, observe func(domain.ProcessingState)) (*domain.Note, error) {
	ctx, span := telemetry.StartSpan(ctx, "Processor.Process", telemetry.SpanAttributes{
		RunID:     rec.ID,
		Operation: "process_recording",
	})
	defer span.End()

	notify := func(state domain.ProcessingState) {
		if observe != nil {
			observe(state)
		}
	}
	fail := func(err error) (*domain.Note, error) {
		span.SetError(err)
		notify(domain.ProcessingState{Stage: domain.StageFailed, Err: err.Error()})
		return nil, err
	}

	// Uploading: hand the stored audio to the transcription provider.
	notify(domain.ProcessingState{Stage: domain.StageUploading})
	audio, err := p.audio.Get(ctx, rec.AudioKey)
	if err != nil {
		return fail(domain.NewUploadError("failed to read stored audio", err))
	}
	jobID, err := p.transcriber.Submit(ctx, audio, rec.FileName)
	audio.Close()
	if err != nil {
		return fail(err)
	}

	// Transcribing: poll the provider's job, surfacing its status transitions.
	notify(domain.ProcessingState{Stage: domain.StageTranscribing})
	result, err := p.transcriber.Poll(ctx, jobID, func(status string) {
		notify(domain.ProcessingState{Stage: domain.StageTranscribing, SubStatus: status})
	})
	if err != nil {
		return fail(err)
	}

	// Summarizing: degrade instead of failing.
	notify(domain.ProcessingState{Stage: domain.StageSummarizing})
	summary := p.summarizeTranscript(ctx, result)

	// Saving: assemble the note and write it atomically.
	notify(domain.ProcessingState{Stage: domain.StageSaving})
	if err := ctx.Err(); err != nil {
		return fail(domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "run cancelled", err))
	}

	title := strings.TrimSpace(summary.Title)
	if title == "" {
		title = fallbackTitleFromFileName(rec.FileName, p.now())
	}

	keywords := summary.TimedKeywords
	if len(keywords) == 0 {
		keywords = timeline.EstimateKeywordTimes(summary.KeyPoints, result.Timeline)
	}

	note := &domain.Note{
		ID:            p.uuidGen.NewString(),
		Title:         title,
		AudioKey:      p.renameAudio(ctx, rec.AudioKey, title),
		DurationMS:    rec.DurationMS,
		Date:          p.now(),
		Transcript:    result.Transcript,
		Summary:       summary.Summary,
		KeyPoints:     summary.KeyPoints,
		ActionItems:   summary.ActionItems,
		Timeline:      result.Timeline,
		TimedKeywords: keywords,
	}
	if err := p.store.Create(ctx, note); err != nil {
		return fail(domain.NewPersistenceError(err))
	}

	notify(domain.ProcessingState{Stage: domain.StageDone, NoteID: note.ID})
	return note, nil
}

// summarizeTranscript produces note content for the transcript, falling back
// to placeholder content when the transcript is empty or the model call
// fails. It never returns an error.
func (p *Processor) summarizeTranscript(ctx context.Context, result *transcribe.Result) *summarize.Result {
	if strings.TrimSpace(result.Transcript) == "" {
		return &summarize.Result{
			Summary:       emptyTranscriptSummary,
			KeyPoints:     []string{},
			ActionItems:   []string{},
			TimedKeywords: []domain.TimedKeyword{},
		}
	}

	summary, err := p.summarizer.Summarize(ctx, result.Transcript, result.Timeline)
	if err != nil {
		log.Printf("pipeline: summarization failed, saving note without summary: %v", err)
		telemetry.CaptureError(ctx, err)
		return &summarize.Result{
			Summary:       unavailableSummary,
			KeyPoints:     []string{},
			ActionItems:   []string{},
			TimedKeywords: []domain.TimedKeyword{},
		}
	}
	return summary
}

// renameAudio renames the stored audio object to match the note's title. The
// rename is best-effort: on failure the original key is kept and the run
// continues.
func (p *Processor) renameAudio(ctx context.Context, audioKey, title string) string {
	newKey := renamedAudioKey(audioKey, title)
	if newKey == "" || newKey == audioKey {
		return audioKey
	}
	if err := p.audio.Rename(ctx, audioKey, newKey); err != nil {
		log.Printf("pipeline: audio rename failed, keeping original key %s: %v", audioKey, err)
		return audioKey
	}
	return newKey
}
