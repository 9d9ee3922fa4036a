package domain

// Stage is one discrete step of the processing pipeline's state machine.
type Stage string

const (
	StageUploading    Stage = "uploading"
	StageTranscribing Stage = "transcribing"
	StageSummarizing  Stage = "summarizing"
	StageSaving       Stage = "saving"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// ordinal positions for the forward path. Failed sits outside the sequence.
var stageOrder = map[Stage]int{
	StageUploading:    0,
	StageTranscribing: 1,
	StageSummarizing:  2,
	StageSaving:       3,
	StageDone:         4,
}

// IsTerminal reports whether no further transition is possible for this
// attempt.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// CanTransition reports whether moving from s to next is a legal state machine
// step: one forward step along the pipeline, or a jump to Failed from any
// non-terminal stage.
func (s Stage) CanTransition(next Stage) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	from, ok := stageOrder[s]
	if !ok {
		return false
	}
	to, ok := stageOrder[next]
	if !ok {
		return false
	}
	return to == from+1
}

// ProcessingState is the orchestrator's externally observable in-flight state.
type ProcessingState struct {
	Stage Stage
	// SubStatus carries the provider's job status while transcribing
	// (e.g. "accepted", "running") so a caller can show finer progress.
	SubStatus string
	// Err is the human-readable failure message when Stage is Failed.
	Err string
	// NoteID is set once the pipeline reaches Done.
	NoteID string
}

func isValidStage(s Stage) bool {
	if s == StageFailed {
		return true
	}
	_, ok := stageOrder[s]
	return ok
}
