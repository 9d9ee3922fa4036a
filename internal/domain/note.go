package domain

import (
	"fmt"
	"time"
)

// WordTimestamp is a single word from the transcription provider with its
// position in the recording, in seconds.
type WordTimestamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TimedKeyword is a keyword or study topic anchored to a whole-second offset.
type TimedKeyword struct {
	Keyword string `json:"keyword"`
	Time    int    `json:"time"`
}

// TimelineSegment is a display-sized chunk of consecutive words. Segments are
// derived from the raw timeline on demand and never persisted.
type TimelineSegment struct {
	Start float64 `json:"start"`
	Text  string  `json:"text"`
}

// Note is the persisted unit produced by a successful pipeline run.
//
// Transcript, Timeline, AudioKey, DurationMS and Date are immutable once
// written. Title, Summary, KeyPoints, ActionItems and Notes may be edited by
// the user afterwards.
type Note struct {
	ID            string
	Title         string
	AudioKey      string
	DurationMS    int64
	Date          time.Time
	Transcript    string
	Summary       string
	KeyPoints     []string
	ActionItems   []string
	Notes         string
	Timeline      []WordTimestamp
	TimedKeywords []TimedKeyword
}

// NoteUpdate carries the user-editable fields for the store's update
// operation. Nil pointers leave the corresponding field unchanged.
type NoteUpdate struct {
	Title       *string
	Summary     *string
	KeyPoints   *[]string
	ActionItems *[]string
	Notes       *string
}

// ValidateNote checks the invariants a Note must satisfy before it is written.
func ValidateNote(n *Note) error {
	if n == nil {
		return fmt.Errorf("note cannot be nil")
	}
	if n.ID == "" {
		return fmt.Errorf("note ID is required")
	}
	if n.Title == "" {
		return fmt.Errorf("note Title is required")
	}
	if n.DurationMS < 0 {
		return fmt.Errorf("note DurationMS must not be negative")
	}

	var maxEnd float64
	prev := -1.0
	for i, w := range n.Timeline {
		if w.Start < 0 {
			return fmt.Errorf("timeline[%d]: Start must not be negative", i)
		}
		if w.End < w.Start {
			return fmt.Errorf("timeline[%d]: End precedes Start", i)
		}
		if w.Start < prev {
			return fmt.Errorf("timeline[%d]: Start decreases", i)
		}
		prev = w.Start
		if w.End > maxEnd {
			maxEnd = w.End
		}
	}

	if len(n.Timeline) > 0 && float64(n.DurationMS) < maxEnd*1000 {
		return fmt.Errorf("note DurationMS is shorter than the timeline")
	}

	for i, k := range n.TimedKeywords {
		if k.Time < 0 {
			return fmt.Errorf("timedKeywords[%d]: Time must not be negative", i)
		}
	}

	return nil
}
