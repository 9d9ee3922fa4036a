package summarize

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/autonote-app/autonote/internal/domain"
)

// fallbackSummaryLimit caps the raw-text excerpt used when the model's output
// cannot be parsed.
const fallbackSummaryLimit = 300

// ParseModelOutput decodes the model's response text into a Result. The text
// is treated as untrusted: surrounding prose and code fences are tolerated,
// every field is coerced to its expected shape, and undecodable output
// degrades to a raw-text excerpt instead of an error. This function never
// fails.
func ParseModelOutput(text string) *Result {
	object, ok := ExtractJSONObject(text)
	if !ok {
		return degradedResult(text)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(object), &fields); err != nil {
		log.Printf("summarize: model output not decodable: %v", err)
		return degradedResult(text)
	}

	summary := coerceString(fields["summary"])
	title := strings.TrimSpace(coerceString(fields["title"]))
	if title == "" {
		title = titleFromSummary(summary)
	}

	return &Result{
		Title:         title,
		Summary:       summary,
		KeyPoints:     coerceStringSlice(fields["key_points"]),
		ActionItems:   coerceStringSlice(fields["study_topics"]),
		TimedKeywords: coerceTimedKeywords(fields["timed_keywords"]),
	}
}

// ExtractJSONObject returns the substring between the first '{' and the last
// '}', which strips reasoning prose and code-fence markers around the object.
func ExtractJSONObject(text string) (string, bool) {
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last == -1 || last < first {
		return "", false
	}
	return text[first : last+1], true
}

// TimeToSeconds converts an "MM:SS" string to whole seconds. Malformed input
// maps to 0 rather than raising an error.
func TimeToSeconds(value string) int {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0
	}
	total := minutes*60 + seconds
	if total < 0 {
		return 0
	}
	return total
}

func degradedResult(text string) *Result {
	summary := strings.TrimSpace(text)
	if len(summary) > fallbackSummaryLimit {
		summary = summary[:fallbackSummaryLimit] + "..."
	}
	if summary == "" {
		summary = "Summary unavailable."
	}
	return &Result{
		Title:         "",
		Summary:       summary,
		KeyPoints:     []string{},
		ActionItems:   []string{},
		TimedKeywords: []domain.TimedKeyword{},
	}
}

// titleFromSummary derives a title from the first words of the summary.
func titleFromSummary(summary string) string {
	words := strings.Fields(summary)
	if len(words) == 0 {
		return "Untitled Note"
	}
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}

// coerceString forces a decoded JSON value to a string. Scalars are printed,
// nested objects and arrays are re-encoded, nil becomes empty.
func coerceString(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(encoded)
	}
}

// coerceStringSlice forces a decoded JSON value to a list of non-empty
// strings. Anything that is not an array becomes empty.
func coerceStringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(coerceString(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func coerceTimedKeywords(v interface{}) []domain.TimedKeyword {
	items, ok := v.([]interface{})
	if !ok {
		return []domain.TimedKeyword{}
	}
	out := make([]domain.TimedKeyword, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		word := strings.TrimSpace(coerceString(entry["word"]))
		if word == "" {
			continue
		}
		out = append(out, domain.TimedKeyword{
			Keyword: word,
			Time:    TimeToSeconds(coerceString(entry["approx_time"])),
		})
	}
	return out
}
