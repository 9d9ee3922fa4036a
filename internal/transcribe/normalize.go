package transcribe

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/autonote-app/autonote/internal/domain"
)

// transcriptPayload mirrors the provider's json-v2 transcript format: a flat
// list of recognized items, each with a time range and ranked alternatives.
type transcriptPayload struct {
	Results []transcriptItem `json:"results"`
}

type transcriptItem struct {
	Type         string  `json:"type"` // "word" or "punctuation"
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
	Alternatives []struct {
		Content string `json:"content"`
	} `json:"alternatives"`
}

// Normalize converts a raw provider transcript into a flat transcript string
// and an ordered word timestamp stream. Words keep the provider's casing;
// punctuation items attach to the preceding word so the transcript reads
// naturally and the timeline stays word-level.
func Normalize(raw []byte) (string, []domain.WordTimestamp, error) {
	var payload transcriptPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", nil, err
	}

	words := make([]domain.WordTimestamp, 0, len(payload.Results))
	for _, item := range payload.Results {
		if len(item.Alternatives) == 0 {
			continue
		}
		content := item.Alternatives[0].Content
		if content == "" {
			continue
		}

		if item.Type == "punctuation" && len(words) > 0 {
			words[len(words)-1].Word += content
			continue
		}
		if item.Type != "word" {
			continue
		}

		words = append(words, domain.WordTimestamp{
			Word:  content,
			Start: item.StartTime,
			End:   item.EndTime,
		})
	}

	sort.SliceStable(words, func(i, j int) bool {
		return words[i].Start < words[j].Start
	})

	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Word
	}
	return strings.Join(parts, " "), words, nil
}
