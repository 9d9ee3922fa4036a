package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var titleNow = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

func TestFallbackTitleFromFileName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		expected string
	}{
		{"descriptive name", "biology-lecture.m4a", "biology lecture"},
		{"underscores", "organic_chemistry_review.wav", "organic chemistry review"},
		{"generic capture name", "recording.m4a", "Recording Mar 14, 2025 10:30"},
		{"numbered capture name", "Recording 3.m4a", "Recording Mar 14, 2025 10:30"},
		{"empty", "", "Recording Mar 14, 2025 10:30"},
		{"extension only", ".m4a", "Recording Mar 14, 2025 10:30"},
		{"path stripped", "uploads/physics-notes.mp3", "physics notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, fallbackTitleFromFileName(tt.fileName, titleNow))
		})
	}
}

func TestSlugifyTitle(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"Cell Energy", "cell-energy"},
		{"Photosynthesis: Light & Dark Reactions!", "photosynthesis-light-dark-reactions"},
		{"   spaced   out   ", "spaced-out"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, slugifyTitle(tt.title))
		})
	}
}

func TestSlugifyTitle_CapsLength(t *testing.T) {
	long := "a very long title that keeps going well past any reasonable storage name length limit"

	slug := slugifyTitle(long)

	assert.LessOrEqual(t, len(slug), slugMaxLength)
	assert.NotEqual(t, "-", slug[len(slug)-1:])
}

func TestRenamedAudioKey(t *testing.T) {
	assert.Equal(t, "recordings/cell-energy.m4a", renamedAudioKey("recordings/rec-1.m4a", "Cell Energy"))
	assert.Equal(t, "cell-energy.wav", renamedAudioKey("rec-1.wav", "Cell Energy"))
	assert.Equal(t, "", renamedAudioKey("recordings/rec-1.m4a", "!!!"))
}
