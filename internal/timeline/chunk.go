// Package timeline derives display structures from word-level timestamps:
// readable segments for timeline navigation and approximate time offsets for
// free-text keywords.
package timeline

import (
	"strings"

	"github.com/autonote-app/autonote/internal/domain"
)

// ChunkConfig controls how word timestamps are grouped into segments.
type ChunkConfig struct {
	// MaxSeconds is the longest span a single segment may cover.
	MaxSeconds float64
	// MaxWords caps the number of words per segment.
	MaxWords int
	// GapSeconds starts a new segment when the silence between consecutive
	// words reaches this length.
	GapSeconds float64
}

// DefaultChunkConfig provides sane defaults for timeline display.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxSeconds: 12,
		MaxWords:   24,
		GapSeconds: 1.5,
	}
}

// Chunk groups consecutive words into display-sized segments. A new segment
// begins when the duration or word-count bound would be exceeded, or after a
// long silence gap. The concatenation of segment words reproduces the input
// word order exactly. Pure function of its input.
func Chunk(words []domain.WordTimestamp) []domain.TimelineSegment {
	return ChunkWithConfig(words, DefaultChunkConfig())
}

// ChunkWithConfig is Chunk with explicit bounds.
func ChunkWithConfig(words []domain.WordTimestamp, cfg ChunkConfig) []domain.TimelineSegment {
	if len(words) == 0 {
		return []domain.TimelineSegment{}
	}
	if cfg.MaxSeconds <= 0 || cfg.MaxWords <= 0 {
		cfg = DefaultChunkConfig()
	}

	segments := make([]domain.TimelineSegment, 0, 8)
	start := 0
	for i := 1; i <= len(words); i++ {
		if i < len(words) && !boundaryBefore(words, start, i, cfg) {
			continue
		}
		segments = append(segments, domain.TimelineSegment{
			Start: words[start].Start,
			Text:  joinWords(words[start:i]),
		})
		start = i
	}

	return segments
}

// boundaryBefore reports whether a segment boundary belongs between
// words[i-1] and words[i] for a segment starting at words[start].
func boundaryBefore(words []domain.WordTimestamp, start, i int, cfg ChunkConfig) bool {
	if i-start >= cfg.MaxWords {
		return true
	}
	if words[i].End-words[start].Start > cfg.MaxSeconds {
		return true
	}
	if words[i].Start-words[i-1].End >= cfg.GapSeconds {
		return true
	}
	return false
}

func joinWords(words []domain.WordTimestamp) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Word
	}
	return strings.Join(parts, " ")
}
