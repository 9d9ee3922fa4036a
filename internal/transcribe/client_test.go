package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/autonote-app/autonote/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock records sleeps without waiting.
type fakeClock struct {
	sleeps int
	err    error
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps++
	if c.err != nil {
		return c.err
	}
	return ctx.Err()
}

const transcriptJSON = `{
	"results": [
		{"type": "word", "start_time": 0.1, "end_time": 0.4, "alternatives": [{"content": "The"}]},
		{"type": "word", "start_time": 0.5, "end_time": 1.2, "alternatives": [{"content": "mitochondria"}]},
		{"type": "word", "start_time": 1.3, "end_time": 1.4, "alternatives": [{"content": "is"}]},
		{"type": "punctuation", "start_time": 1.4, "end_time": 1.4, "alternatives": [{"content": "."}]}
	]
}`

func newTestClient(t *testing.T, handler http.Handler) (*Client, *fakeClock) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	clock := &fakeClock{}
	client, err := NewClient(Config{
		BaseURL:         srv.URL,
		APIKey:          "test-key",
		PollInterval:    2 * time.Second,
		MaxPollAttempts: 5,
		Clock:           clock,
	})
	require.NoError(t, err)
	return client, clock
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	_, err := NewClient(Config{})

	require.Error(t, err)
	assert.Equal(t, domain.ErrMissingTranscriptionKey, err)
}

func TestClient_Submit_Success(t *testing.T) {
	var gotAuth, gotConfig string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/jobs", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotConfig = r.FormValue("config")
		_, header, err := r.FormFile("data_file")
		require.NoError(t, err)
		assert.Equal(t, "lecture.m4a", header.Filename)

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "job-42"}`)
	}))

	jobID, err := client.Submit(context.Background(), strings.NewReader("audio-bytes"), "lecture.m4a")

	require.NoError(t, err)
	assert.Equal(t, "job-42", jobID)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Contains(t, gotConfig, `"type":"transcription"`)
}

func TestClient_Submit_ProviderRejection(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"detail": "unsupported audio format"}`)
	}))

	_, err := client.Submit(context.Background(), strings.NewReader("audio-bytes"), "lecture.xyz")

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeUpload, domainErr.Code)
	assert.Contains(t, err.Error(), "unsupported audio format")
}

func TestClient_Poll_TransitionsToDone(t *testing.T) {
	statuses := []string{JobStatusAccepted, JobStatusRunning, JobStatusRunning, JobStatusDone}
	call := 0
	client, clock := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/jobs/job-42/transcript" {
			fmt.Fprint(w, transcriptJSON)
			return
		}
		require.Equal(t, "/jobs/job-42", r.URL.Path)
		fmt.Fprintf(w, `{"job": {"id": "job-42", "status": %q}}`, statuses[call])
		call++
	}))

	var observed []string
	result, err := client.Poll(context.Background(), "job-42", func(status string) {
		observed = append(observed, status)
	})

	require.NoError(t, err)
	assert.Equal(t, "The mitochondria is.", result.Transcript)
	require.Len(t, result.Timeline, 3)
	assert.Equal(t, "mitochondria", result.Timeline[1].Word)
	assert.Equal(t, 0.5, result.Timeline[1].Start)
	assert.Equal(t, "is.", result.Timeline[2].Word)
	// only transitions are reported, not every poll
	assert.Equal(t, []string{JobStatusAccepted, JobStatusRunning, JobStatusDone}, observed)
	assert.Equal(t, 3, clock.sleeps)
	assert.NotEmpty(t, result.Raw)
}

func TestClient_Poll_JobRejected(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"job": {"id": "job-42", "status": "rejected", "errors": ["audio too short"]}}`)
	}))

	_, err := client.Poll(context.Background(), "job-42", nil)

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeTranscription, domainErr.Code)
	assert.Contains(t, err.Error(), "audio too short")
}

func TestClient_Poll_TimesOutAfterMaxAttempts(t *testing.T) {
	polls := 0
	client, clock := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls++
		fmt.Fprint(w, `{"job": {"id": "job-42", "status": "running"}}`)
	}))

	_, err := client.Poll(context.Background(), "job-42", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Equal(t, 5, polls)
	assert.Equal(t, 4, clock.sleeps)
}

func TestClient_Poll_CancelledBetweenAttempts(t *testing.T) {
	client, clock := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"job": {"id": "job-42", "status": "running"}}`)
	}))
	clock.err = context.Canceled

	_, err := client.Poll(context.Background(), "job-42", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNormalize_EmptyResults(t *testing.T) {
	transcript, words, err := Normalize([]byte(`{"results": []}`))

	require.NoError(t, err)
	assert.Empty(t, transcript)
	assert.Empty(t, words)
}

func TestNormalize_OrdersByStartTime(t *testing.T) {
	raw := []byte(`{"results": [
		{"type": "word", "start_time": 5.0, "end_time": 5.5, "alternatives": [{"content": "world"}]},
		{"type": "word", "start_time": 1.0, "end_time": 1.5, "alternatives": [{"content": "hello"}]}
	]}`)

	transcript, words, err := Normalize(raw)

	require.NoError(t, err)
	assert.Equal(t, "hello world", transcript)
	require.Len(t, words, 2)
	assert.Equal(t, 1.0, words[0].Start)
}
