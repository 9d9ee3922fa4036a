package timeline

import (
	"testing"

	"github.com/autonote-app/autonote/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lectureWords() []domain.WordTimestamp {
	return []domain.WordTimestamp{
		{Word: "Today", Start: 0.2, End: 0.6},
		{Word: "we", Start: 0.7, End: 0.8},
		{Word: "discuss", Start: 0.9, End: 1.4},
		{Word: "photosynthesis", Start: 12.0, End: 12.8},
		{Word: "and", Start: 13.0, End: 13.1},
		{Word: "cellular", Start: 13.3, End: 13.9},
		{Word: "respiration,", Start: 14.0, End: 14.8},
		{Word: "then", Start: 20.5, End: 20.8},
		{Word: "photosynthesis", Start: 21.0, End: 21.9},
	}
}

func TestEstimateKeywordTimes_CaseInsensitiveFirstMatch(t *testing.T) {
	keywords := EstimateKeywordTimes([]string{"Photosynthesis"}, lectureWords())

	require.Len(t, keywords, 1)
	assert.Equal(t, "Photosynthesis", keywords[0].Keyword)
	assert.Equal(t, 12, keywords[0].Time)
}

func TestEstimateKeywordTimes_PhraseBeatsSingleWord(t *testing.T) {
	keywords := EstimateKeywordTimes([]string{"cellular respiration"}, lectureWords())

	require.Len(t, keywords, 1)
	assert.Equal(t, 13, keywords[0].Time)
}

func TestEstimateKeywordTimes_IgnoresPunctuationInTimeline(t *testing.T) {
	// "respiration," carries a trailing comma in the provider output.
	keywords := EstimateKeywordTimes([]string{"respiration"}, lectureWords())

	require.Len(t, keywords, 1)
	assert.Equal(t, 14, keywords[0].Time)
}

func TestEstimateKeywordTimes_ParaphrasedTopicFallsBackToAnyWord(t *testing.T) {
	// No contiguous match for the full phrase; "photosynthesis" alone matches.
	keywords := EstimateKeywordTimes([]string{"The mechanism of photosynthesis"}, lectureWords())

	require.Len(t, keywords, 1)
	assert.Equal(t, 12, keywords[0].Time)
}

func TestEstimateKeywordTimes_NoMatchDefaultsToZero(t *testing.T) {
	keywords := EstimateKeywordTimes([]string{"quantum chromodynamics"}, lectureWords())

	require.Len(t, keywords, 1)
	assert.Equal(t, "quantum chromodynamics", keywords[0].Keyword)
	assert.Equal(t, 0, keywords[0].Time)
}

func TestEstimateKeywordTimes_RoundsDownToWholeSeconds(t *testing.T) {
	words := []domain.WordTimestamp{{Word: "osmosis", Start: 9.97, End: 10.4}}
	keywords := EstimateKeywordTimes([]string{"osmosis"}, words)

	require.Len(t, keywords, 1)
	assert.Equal(t, 9, keywords[0].Time)
}

func TestEstimateKeywordTimes_EmptyInputs(t *testing.T) {
	assert.Empty(t, EstimateKeywordTimes(nil, lectureWords()))
	assert.Empty(t, EstimateKeywordTimes([]string{"", "   "}, lectureWords()))

	keywords := EstimateKeywordTimes([]string{"anything"}, nil)
	require.Len(t, keywords, 1)
	assert.Equal(t, 0, keywords[0].Time)
}

func TestEstimateKeywordTimes_PreservesTopicOrder(t *testing.T) {
	keywords := EstimateKeywordTimes([]string{"respiration", "Today", "photosynthesis"}, lectureWords())

	require.Len(t, keywords, 3)
	assert.Equal(t, "respiration", keywords[0].Keyword)
	assert.Equal(t, "Today", keywords[1].Keyword)
	assert.Equal(t, "photosynthesis", keywords[2].Keyword)
}
