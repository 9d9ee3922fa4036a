package client

import "fmt"

// Note represents a saved note from the API.
type Note struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	DurationMS    int64           `json:"duration_ms"`
	Date          string          `json:"date"`
	Transcript    string          `json:"transcript"`
	Summary       string          `json:"summary"`
	KeyPoints     []string        `json:"key_points"`
	ActionItems   []string        `json:"action_items"`
	Notes         string          `json:"notes,omitempty"`
	Timeline      []WordTimestamp `json:"timeline"`
	TimedKeywords []TimedKeyword  `json:"timed_keywords"`
}

// WordTimestamp is one transcribed word with its position in seconds.
type WordTimestamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TimedKeyword is a study topic anchored to a whole-second offset.
type TimedKeyword struct {
	Keyword string `json:"keyword"`
	Time    int    `json:"time"`
}

func formatDuration(durationMS int64) string {
	totalSeconds := durationMS / 1000
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60
	if minutes == 0 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm%02ds", minutes, seconds)
}
