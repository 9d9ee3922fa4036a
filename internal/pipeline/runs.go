package pipeline

import (
	"context"
	"sync"

	"github.com/autonote-app/autonote/internal/domain"
)

// Run is one processing attempt for one recording. Its state is updated by
// the processor goroutine and read by the HTTP progress surface.
type Run struct {
	ID        string
	Recording Recording

	mu     sync.Mutex
	state  domain.ProcessingState
	cancel context.CancelFunc
}

// State returns a snapshot of the run's current state.
func (r *Run) State() domain.ProcessingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Run) setState(state domain.ProcessingState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}

// RunProcessor executes one processing attempt. *Processor satisfies it.
type RunProcessor interface {
	Process(ctx context.Context, rec Recording, observe func(domain.ProcessingState)) (*domain.Note, error)
}

// Manager tracks in-flight and settled runs in memory and enforces one active
// run per recording. Runs do not survive a restart; the recording can simply
// be submitted again.
type Manager struct {
	processor RunProcessor
	uuidGen   UUIDGenerator

	mu          sync.Mutex
	runs        map[string]*Run
	byRecording map[string]*Run
}

// NewManager creates a Manager around the processor.
func NewManager(processor RunProcessor) *Manager {
	return &Manager{
		processor:   processor,
		uuidGen:     &DefaultUUIDGenerator{},
		runs:        make(map[string]*Run),
		byRecording: make(map[string]*Run),
	}
}

// NewManagerWithUUIDGen creates a Manager with a custom UUID generator (for
// testing).
func NewManagerWithUUIDGen(processor RunProcessor, uuidGen UUIDGenerator) *Manager {
	m := NewManager(processor)
	m.uuidGen = uuidGen
	return m
}

// Start begins a run for the recording. A recording with a run in a
// non-terminal stage cannot start another.
func (m *Manager) Start(ctx context.Context, rec Recording) (*Run, error) {
	m.mu.Lock()
	if active, ok := m.byRecording[rec.ID]; ok && !active.State().Stage.IsTerminal() {
		m.mu.Unlock()
		return nil, domain.ErrRunInFlight
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		ID:        m.uuidGen.NewString(),
		Recording: rec,
		state:     domain.ProcessingState{Stage: domain.StageUploading},
		cancel:    cancel,
	}
	m.runs[run.ID] = run
	m.byRecording[rec.ID] = run
	m.mu.Unlock()

	go func() {
		defer cancel()
		m.processor.Process(runCtx, rec, run.setState)
	}()

	return run, nil
}

// Get returns the run by id.
func (m *Manager) Get(runID string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run, nil
}

// Retry starts a fresh run for a failed run's recording. Nothing from the
// failed attempt is reused; the new run begins at the upload stage.
func (m *Manager) Retry(ctx context.Context, runID string) (*Run, error) {
	run, err := m.Get(runID)
	if err != nil {
		return nil, err
	}
	if run.State().Stage != domain.StageFailed {
		return nil, domain.NewDomainError(domain.ErrCodeConflict, "only failed runs can be retried")
	}
	return m.Start(ctx, run.Recording)
}

// Cancel abandons an in-flight run. Cancelling a settled run is a no-op.
func (m *Manager) Cancel(runID string) error {
	run, err := m.Get(runID)
	if err != nil {
		return err
	}
	run.cancel()
	return nil
}
