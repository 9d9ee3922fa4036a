// Package transcribe wraps the speech-to-text provider's asynchronous jobs
// API: submit an audio file, poll the job until it settles, and normalize the
// word-level output into a flat transcript plus a timestamp stream.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/autonote-app/autonote/internal/domain"
)

const (
	DefaultBaseURL = "https://asr.api.speechmatics.com/v2"

	defaultPollInterval    = 2 * time.Second
	defaultMaxPollAttempts = 150
)

// Job statuses reported by the provider.
const (
	JobStatusAccepted = "accepted"
	JobStatusRunning  = "running"
	JobStatusDone     = "done"
	JobStatusRejected = "rejected"
	JobStatusExpired  = "expired"
	JobStatusDeleted  = "deleted"
)

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Clock abstracts time so polling can be tested without real delays.
type Clock interface {
	// Sleep waits for d or until ctx is cancelled, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Config holds construction parameters for Client.
type Config struct {
	BaseURL         string
	APIKey          string
	Language        string
	PollInterval    time.Duration
	MaxPollAttempts int
	HTTPClient      Doer
	Clock           Clock
}

// Client talks to the transcription provider.
type Client struct {
	baseURL         string
	apiKey          string
	language        string
	pollInterval    time.Duration
	maxPollAttempts int
	httpClient      Doer
	clock           Clock
}

// Result is the normalized output of a completed transcription job.
type Result struct {
	Transcript string
	Timeline   []domain.WordTimestamp
	Raw        json.RawMessage
}

// NewClient creates a Client. A missing API key is a configuration error,
// reported here rather than on the first network call.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domain.ErrMissingTranscriptionKey
	}
	c := &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:          cfg.APIKey,
		language:        cfg.Language,
		pollInterval:    cfg.PollInterval,
		maxPollAttempts: cfg.MaxPollAttempts,
		httpClient:      cfg.HTTPClient,
		clock:           cfg.Clock,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.language == "" {
		c.language = "auto"
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.maxPollAttempts <= 0 {
		c.maxPollAttempts = defaultMaxPollAttempts
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if c.clock == nil {
		c.clock = realClock{}
	}
	return c, nil
}

type submitResponse struct {
	ID string `json:"id"`
}

type jobResponse struct {
	Job struct {
		ID     string   `json:"id"`
		Status string   `json:"status"`
		Errors []string `json:"errors"`
	} `json:"job"`
}

// Submit uploads the audio and returns the provider's opaque job id.
func (c *Client) Submit(ctx context.Context, audio io.Reader, filename string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	jobConfig := map[string]interface{}{
		"type": "transcription",
		"transcription_config": map[string]interface{}{
			"language": c.language,
		},
	}
	configJSON, err := json.Marshal(jobConfig)
	if err != nil {
		return "", domain.NewUploadError("failed to encode job config", err)
	}
	if err := mw.WriteField("config", string(configJSON)); err != nil {
		return "", domain.NewUploadError("failed to build upload payload", err)
	}

	if filename == "" {
		filename = "recording.m4a"
	}
	fw, err := mw.CreateFormFile("data_file", filename)
	if err != nil {
		return "", domain.NewUploadError("failed to build upload payload", err)
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return "", domain.NewUploadError("failed to read audio", err)
	}
	if err := mw.Close(); err != nil {
		return "", domain.NewUploadError("failed to build upload payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", &body)
	if err != nil {
		return "", domain.NewUploadError("failed to build upload request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewUploadError("upload request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.NewUploadError(providerMessage(resp), nil)
	}

	var submitted submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return "", domain.NewUploadError("failed to decode upload response", err)
	}
	if submitted.ID == "" {
		return "", domain.NewUploadError("provider returned no job id", nil)
	}
	return submitted.ID, nil
}

// Poll queries the job at a fixed interval until it settles, invoking
// onStatus on every observed status transition. On completion it fetches and
// normalizes the transcript. The loop is bounded: exceeding the attempt cap is
// a timeout failure, not an infinite wait.
func (c *Client) Poll(ctx context.Context, jobID string, onStatus func(status string)) (*Result, error) {
	lastStatus := ""
	for attempt := 0; attempt < c.maxPollAttempts; attempt++ {
		if attempt > 0 {
			if err := c.clock.Sleep(ctx, c.pollInterval); err != nil {
				return nil, domain.NewTranscriptionError("polling cancelled", err)
			}
		}

		job, err := c.fetchJob(ctx, jobID)
		if err != nil {
			return nil, err
		}

		if job.Job.Status != lastStatus {
			lastStatus = job.Job.Status
			if onStatus != nil {
				onStatus(job.Job.Status)
			}
		}

		switch job.Job.Status {
		case JobStatusDone:
			return c.fetchTranscript(ctx, jobID)
		case JobStatusRejected, JobStatusExpired, JobStatusDeleted:
			reason := strings.Join(job.Job.Errors, "; ")
			if reason == "" {
				reason = fmt.Sprintf("transcription job %s", job.Job.Status)
			}
			return nil, domain.NewTranscriptionError(reason, nil)
		}
	}

	return nil, domain.NewTranscriptionError(
		fmt.Sprintf("transcription timed out after %d attempts", c.maxPollAttempts), nil)
}

func (c *Client) fetchJob(ctx context.Context, jobID string) (*jobResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return nil, domain.NewTranscriptionError("failed to build status request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewTranscriptionError("status request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewTranscriptionError(providerMessage(resp), nil)
	}

	var job jobResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, domain.NewTranscriptionError("failed to decode job status", err)
	}
	return &job, nil
}

func (c *Client) fetchTranscript(ctx context.Context, jobID string) (*Result, error) {
	url := c.baseURL + "/jobs/" + jobID + "/transcript?format=json-v2"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewTranscriptionError("failed to build transcript request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewTranscriptionError("transcript request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewTranscriptionError(providerMessage(resp), nil)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewTranscriptionError("failed to read transcript", err)
	}

	transcript, words, err := Normalize(raw)
	if err != nil {
		return nil, domain.NewTranscriptionError("failed to parse transcript", err)
	}

	return &Result{Transcript: transcript, Timeline: words, Raw: raw}, nil
}

// providerMessage extracts a human-readable reason from an error response.
func providerMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return fmt.Sprintf("provider returned HTTP %d", resp.StatusCode)
	}
	return fmt.Sprintf("provider returned HTTP %d: %s", resp.StatusCode, text)
}
