//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/autonote-app/autonote/internal/api/handlers"
	"github.com/autonote-app/autonote/internal/jobs"
	"github.com/autonote-app/autonote/internal/pipeline"
	"github.com/autonote-app/autonote/internal/repository"
	"github.com/autonote-app/autonote/internal/server"
	"github.com/autonote-app/autonote/internal/service"
	"github.com/autonote-app/autonote/internal/storage"
	"github.com/autonote-app/autonote/internal/summarize"
	"github.com/autonote-app/autonote/internal/testutil"
	"github.com/autonote-app/autonote/internal/transcribe"
	"github.com/jackc/pgx/v5/pgxpool"
)

// defaultModelOutput is what the stubbed LLM returns for every transcript.
const defaultModelOutput = `{
	"title": "Cell Energy Lecture",
	"summary": "The lecture covers how cells produce energy through respiration.",
	"key_points": ["Mitochondria produce ATP", "Glycolysis happens in the cytoplasm"],
	"study_topics": ["Review the Krebs cycle"],
	"timed_keywords": [{"word": "mitochondria", "approx_time": "00:04"}]
}`

// defaultTranscriptWords feeds the stubbed transcription provider. One word
// per second keeps segment boundaries predictable.
var defaultTranscriptWords = []string{
	"Today", "we", "discuss", "how", "mitochondria", "produce", "energy",
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	S3Client     *storage.S3Client
	Speech       *speechStub
	ServerURL    string
	ServerCloser func()
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment: real Postgres and RustFS
// containers, stubbed transcription and LLM providers, and the HTTP server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "autonote-audio",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	speech := newSpeechStub(defaultTranscriptWords)

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, s3Client, speech, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		S3Client:     s3Client,
		Speech:       speech,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Speech != nil {
		e.Speech.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries builds the autonote and autonoted binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "autonote-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	for _, name := range []string{"autonoted", "autonote"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}
}

// RunAutonote runs the autonote CLI against the test server
func (e *E2ETestEnv) RunAutonote(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "autonote"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("AUTONOTE_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Run mirrors the run status payload returned by the recordings endpoints.
type Run struct {
	RunID       string `json:"run_id"`
	RecordingID string `json:"recording_id"`
	Stage       string `json:"stage"`
	SubStatus   string `json:"sub_status,omitempty"`
	Error       string `json:"error,omitempty"`
	NoteID      string `json:"note_id,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

// Patch performs a PATCH request
func (e *E2ETestEnv) Patch(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("PATCH", path, body)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if len(respBody) == 0 {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// UploadRecording posts audio content as multipart form data and returns the
// started run.
func (e *E2ETestEnv) UploadRecording(content []byte, filename string, durationMS int64) (*Run, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if err := mw.WriteField("duration_ms", fmt.Sprintf("%d", durationMS)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", e.ServerURL+"/v1/recordings", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	var run Run
	if err := json.Unmarshal(apiResp.Data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// WaitForRun polls the run until it reaches a terminal stage.
func (e *E2ETestEnv) WaitForRun(runID string, timeout time.Duration) *Run {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := e.Get("/v1/recordings/" + runID)
		if err != nil {
			e.T.Fatalf("failed to poll run %s: %v", runID, err)
		}

		var run Run
		if err := json.Unmarshal(resp.Data, &run); err != nil {
			e.T.Fatalf("failed to parse run: %v", err)
		}

		if run.Stage == "done" || run.Stage == "failed" {
			return &run
		}
		time.Sleep(50 * time.Millisecond)
	}
	e.T.Fatalf("run %s did not finish within %v", runID, timeout)
	return nil
}

// WaitForEmbedding polls until the background worker has stored the note's
// summary embedding.
func (e *E2ETestEnv) WaitForEmbedding(noteID string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var hasEmbedding bool
		err := e.Pool.QueryRow(e.Ctx,
			"SELECT summary_embedding IS NOT NULL FROM notes WHERE id = $1", noteID,
		).Scan(&hasEmbedding)
		if err == nil && hasEmbedding {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatalf("note %s was not embedded within %v", noteID, timeout)
}

// DownloadFile downloads a file from the presigned URL
func (e *E2ETestEnv) DownloadFile(downloadURL string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// startServer wires the full application against the test containers and the
// provider stubs, mirroring the daemon's serve command.
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, speech *speechStub, port int) (string, func()) {
	transcriber, err := transcribe.NewClient(transcribe.Config{
		BaseURL:         speech.URL(),
		APIKey:          "e2e-test-key",
		Language:        "en",
		PollInterval:    10 * time.Millisecond,
		MaxPollAttempts: 100,
	})
	if err != nil {
		t.Fatalf("failed to create transcription client: %v", err)
	}
	summarizer := summarize.NewClientWithAPI(&chatStub{output: defaultModelOutput})
	embedder := &embeddingStub{}

	noteRepo := repository.NewNoteRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	noteSvc := service.NewNoteServiceWithTx(noteRepo, embeddingJobRepo, s3Client, txRunner)
	searchSvc := service.NewSearchService(embedder, noteRepo)
	embeddingSvc := service.NewEmbeddingService(embedder, noteRepo)

	worker := jobs.NewWorker(jobs.NewEmbeddingWorker(embeddingJobRepo, embeddingSvc), 100*time.Millisecond)

	runCtx, cancelRuns := context.WithCancel(context.Background())
	go worker.Start(runCtx)

	processor := pipeline.NewProcessor(transcriber, summarizer, noteSvc, s3Client)
	manager := pipeline.NewManager(processor)

	router := server.NewRouter(server.RouterConfig{
		RecordingHandler: handlers.NewRecordingHandler(runCtx, s3Client, manager),
		NoteHandler:      handlers.NewNoteHandler(noteSvc, searchSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		worker.Stop()
		cancelRuns()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// speechStub emulates the transcription provider's asynchronous jobs API.
// Every submitted job completes immediately with a transcript built from the
// configured word list, one word per second.
type speechStub struct {
	srv *httptest.Server

	mu      sync.Mutex
	words   []string
	jobSeq  int
	submits int
}

func newSpeechStub(words []string) *speechStub {
	s := &speechStub{words: words}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /jobs", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.jobSeq++
		s.submits++
		id := fmt.Sprintf("job-%d", s.jobSeq)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": id})
	})

	mux.HandleFunc("GET /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"job": map[string]interface{}{
				"id":     r.PathValue("id"),
				"status": "done",
			},
		})
	})

	mux.HandleFunc("GET /jobs/{id}/transcript", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		words := s.words
		s.mu.Unlock()

		results := make([]map[string]interface{}, 0, len(words))
		for i, word := range words {
			results = append(results, map[string]interface{}{
				"type":       "word",
				"start_time": float64(i),
				"end_time":   float64(i) + 0.5,
				"alternatives": []map[string]string{
					{"content": word},
				},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"results": results})
	})

	s.srv = httptest.NewServer(mux)
	return s
}

func (s *speechStub) URL() string { return s.srv.URL }

func (s *speechStub) Close() { s.srv.Close() }

// Submits reports how many jobs have been submitted.
func (s *speechStub) Submits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submits
}

// SetWords replaces the transcript returned for subsequent jobs.
func (s *speechStub) SetWords(words []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = words
}

// chatStub returns a fixed model response for every summarization prompt.
type chatStub struct {
	output string
}

func (c *chatStub) Complete(ctx context.Context, prompt string) (string, error) {
	return c.output, nil
}

// embeddingStub returns the same unit vector for every text, so any stored
// note matches any query with cosine similarity 1.
type embeddingStub struct{}

func (*embeddingStub) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 1536)
	vec[0] = 1
	return vec, nil
}
