package timeline

import (
	"math"
	"strings"
	"unicode"

	"github.com/autonote-app/autonote/internal/domain"
)

// EstimateKeywordTimes infers an approximate offset for each topic string by
// matching it against the word timestamp stream. Topics are paraphrased, so
// matching is word-level rather than substring: the earliest occurrence of the
// longest contiguous run of topic words wins, falling back to any single topic
// word. Matching is case-insensitive with punctuation stripped; no stemming.
//
// A topic with no matching word is kept with Time 0 so the caller still
// renders every keyword.
func EstimateKeywordTimes(topics []string, words []domain.WordTimestamp) []domain.TimedKeyword {
	normalized := make([]string, len(words))
	for i, w := range words {
		normalized[i] = normalizeWord(w.Word)
	}

	keywords := make([]domain.TimedKeyword, 0, len(topics))
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		keywords = append(keywords, domain.TimedKeyword{
			Keyword: topic,
			Time:    matchTopic(topic, normalized, words),
		})
	}
	return keywords
}

// matchTopic returns the whole-second start of the best match, or 0.
func matchTopic(topic string, normalized []string, words []domain.WordTimestamp) int {
	topicWords := splitTopic(topic)
	if len(topicWords) == 0 {
		return 0
	}

	// Prefer the longest contiguous phrase; shrink until something matches.
	for length := len(topicWords); length > 0; length-- {
		for offset := 0; offset+length <= len(topicWords); offset++ {
			if at := findPhrase(topicWords[offset:offset+length], normalized); at >= 0 {
				return int(math.Floor(words[at].Start))
			}
		}
	}
	return 0
}

// findPhrase scans for the earliest occurrence of phrase as consecutive words.
func findPhrase(phrase []string, normalized []string) int {
	if len(phrase) == 0 || len(phrase) > len(normalized) {
		return -1
	}
	for i := 0; i+len(phrase) <= len(normalized); i++ {
		match := true
		for j, p := range phrase {
			if normalized[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func splitTopic(topic string) []string {
	fields := strings.Fields(topic)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if n := normalizeWord(f); n != "" {
			words = append(words, n)
		}
	}
	return words
}

// normalizeWord lowercases and strips everything but letters and digits.
func normalizeWord(w string) string {
	var b strings.Builder
	for _, r := range w {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
