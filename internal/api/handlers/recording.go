package handlers

import (
	"context"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/autonote-app/autonote/internal/api"
	"github.com/autonote-app/autonote/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxUploadMemory caps the in-memory portion of multipart parsing; larger
// uploads spill to disk.
const maxUploadMemory = 32 << 20

const defaultAudioExt = ".m4a"

// AudioUploader stores the received recording before the pipeline starts.
type AudioUploader interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
}

// RunManager starts and tracks processing runs.
type RunManager interface {
	Start(ctx context.Context, rec pipeline.Recording) (*pipeline.Run, error)
	Get(runID string) (*pipeline.Run, error)
	Retry(ctx context.Context, runID string) (*pipeline.Run, error)
	Cancel(runID string) error
}

type RecordingHandler struct {
	uploads AudioUploader
	runs    RunManager

	// runCtx is the parent of every run; it outlives the HTTP request that
	// started the run and is cancelled on server shutdown.
	runCtx context.Context
}

func NewRecordingHandler(runCtx context.Context, uploads AudioUploader, runs RunManager) *RecordingHandler {
	return &RecordingHandler{uploads: uploads, runs: runs, runCtx: runCtx}
}

type RunResponse struct {
	RunID       string `json:"run_id"`
	RecordingID string `json:"recording_id"`
	Stage       string `json:"stage"`
	SubStatus   string `json:"sub_status,omitempty"`
	Error       string `json:"error,omitempty"`
	NoteID      string `json:"note_id,omitempty"`
}

func runToResponse(run *pipeline.Run) *RunResponse {
	state := run.State()
	return &RunResponse{
		RunID:       run.ID,
		RecordingID: run.Recording.ID,
		Stage:       string(state.Stage),
		SubStatus:   state.SubStatus,
		Error:       state.Err,
		NoteID:      state.NoteID,
	}
}

// Create receives a recording as multipart form data, stores the audio and
// starts a processing run.
func (h *RecordingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	durationRaw := r.FormValue("duration_ms")
	if durationRaw == "" {
		api.Error(w, http.StatusBadRequest, "duration_ms is required")
		return
	}
	durationMS, err := strconv.ParseInt(durationRaw, 10, 64)
	if err != nil || durationMS < 0 {
		api.Error(w, http.StatusBadRequest, "duration_ms must be a non-negative integer")
		return
	}

	fileName := r.FormValue("filename")
	if fileName == "" {
		fileName = header.Filename
	}

	ext := path.Ext(fileName)
	if ext == "" {
		ext = defaultAudioExt
	}

	recordingID := uuid.NewString()
	audioKey := "recordings/" + recordingID + ext

	if err := h.uploads.Put(r.Context(), audioKey, file, header.Header.Get("Content-Type")); err != nil {
		api.Error(w, http.StatusBadGateway, "failed to store audio")
		return
	}

	run, err := h.runs.Start(h.runCtx, pipeline.Recording{
		ID:         recordingID,
		AudioKey:   audioKey,
		FileName:   fileName,
		DurationMS: durationMS,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, runToResponse(run))
}

// Get reports the run's current stage for a progress indicator.
func (h *RecordingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	run, err := h.runs.Get(id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, runToResponse(run))
}

// Retry starts a fresh run for a failed run's recording.
func (h *RecordingHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	run, err := h.runs.Retry(h.runCtx, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, runToResponse(run))
}

// Cancel abandons an in-flight run.
func (h *RecordingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.runs.Cancel(id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
