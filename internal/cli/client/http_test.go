package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *APIClient {
	return &APIClient{baseURL: baseURL, httpClient: http.DefaultClient}
}

func TestAPIClient_Get_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/notes/note-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":"note-1","title":"Cell Energy"}}`))
	}))
	defer srv.Close()

	api := newTestClient(srv.URL)
	resp, err := api.Get("/v1/notes/note-1")

	require.NoError(t, err)
	var note Note
	require.NoError(t, json.Unmarshal(resp.Data, &note))
	assert.Equal(t, "note-1", note.ID)
}

func TestAPIClient_Get_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"note not found"}`))
	}))
	defer srv.Close()

	api := newTestClient(srv.URL)
	_, err := api.Get("/v1/notes/missing")

	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "note not found", apiErr.Message)
}

func TestAPIClient_Patch_SendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"title":"New Title"}`, string(body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":"note-1","title":"New Title"}}`))
	}))
	defer srv.Close()

	title := "New Title"
	api := newTestClient(srv.URL)
	_, err := api.Patch("/v1/notes/note-1", EditRequest{Title: &title})

	require.NoError(t, err)
}

func TestAPIClient_Delete_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	api := newTestClient(srv.URL)
	_, err := api.Delete("/v1/notes/note-1")

	require.NoError(t, err)
}

func TestAPIClient_UploadRecording(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "60000", r.FormValue("duration_ms"))
		assert.Equal(t, "lecture.m4a", r.FormValue("filename"))

		file, _, err := r.FormFile("audio")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "fake audio", string(content))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"data":{"run_id":"run-1","recording_id":"rec-1","stage":"uploading"}}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	audioPath := filepath.Join(dir, "lecture.m4a")
	require.NoError(t, os.WriteFile(audioPath, []byte("fake audio"), 0o644))

	api := newTestClient(srv.URL)
	resp, err := api.UploadRecording("/v1/recordings", audioPath, 60_000, "")

	require.NoError(t, err)
	var run Run
	require.NoError(t, json.Unmarshal(resp.Data, &run))
	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, "uploading", run.Stage)
}

func TestNewAPIClientWithCmd_EnvFallback(t *testing.T) {
	t.Setenv(envAPIURL, "http://example.test:9999")

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://example.test:9999", api.baseURL)
}

func TestNewAPIClientWithCmd_Default(t *testing.T) {
	t.Setenv(envAPIURL, "")

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, api.baseURL)
}
