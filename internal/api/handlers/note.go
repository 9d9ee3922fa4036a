package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/autonote-app/autonote/internal/api"
	"github.com/autonote-app/autonote/internal/domain"
	"github.com/autonote-app/autonote/internal/service"
	"github.com/go-chi/chi/v5"
)

const (
	defaultListLimit   = 20
	maxListLimit       = 100
	audioURLExpiration = time.Hour
)

type NoteServiceInterface interface {
	Get(ctx context.Context, id string) (*domain.Note, error)
	List(ctx context.Context, input service.ListNotesInput) (*service.ListNotesOutput, error)
	Update(ctx context.Context, id string, update *domain.NoteUpdate) (*domain.Note, error)
	Delete(ctx context.Context, id string) error
	AudioURL(ctx context.Context, id string, expires time.Duration) (string, error)
	Segments(ctx context.Context, id string) ([]domain.TimelineSegment, error)
}

type SearchServiceInterface interface {
	Search(ctx context.Context, query string, limit int) ([]*service.NoteSearchResult, error)
}

type NoteHandler struct {
	svc    NoteServiceInterface
	search SearchServiceInterface
}

func NewNoteHandler(svc NoteServiceInterface, search SearchServiceInterface) *NoteHandler {
	return &NoteHandler{svc: svc, search: search}
}

type NoteResponse struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	DurationMS    int64                  `json:"duration_ms"`
	Date          string                 `json:"date"`
	Transcript    string                 `json:"transcript"`
	Summary       string                 `json:"summary"`
	KeyPoints     []string               `json:"key_points"`
	ActionItems   []string               `json:"action_items"`
	Notes         string                 `json:"notes,omitempty"`
	Timeline      []domain.WordTimestamp `json:"timeline"`
	TimedKeywords []domain.TimedKeyword  `json:"timed_keywords"`
}

type NoteListResponse struct {
	Items      []*NoteResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

type UpdateNoteRequest struct {
	Title       *string   `json:"title"`
	Summary     *string   `json:"summary"`
	KeyPoints   *[]string `json:"key_points"`
	ActionItems *[]string `json:"action_items"`
	Notes       *string   `json:"notes"`
}

type AudioURLResponse struct {
	AudioURL string `json:"audio_url"`
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type SearchResultResponse struct {
	Note       *NoteResponse `json:"note"`
	Similarity float64       `json:"similarity"`
}

func noteToResponse(n *domain.Note) *NoteResponse {
	return &NoteResponse{
		ID:            n.ID,
		Title:         n.Title,
		DurationMS:    n.DurationMS,
		Date:          n.Date.UTC().Format(time.RFC3339),
		Transcript:    n.Transcript,
		Summary:       n.Summary,
		KeyPoints:     n.KeyPoints,
		ActionItems:   n.ActionItems,
		Notes:         n.Notes,
		Timeline:      n.Timeline,
		TimedKeywords: n.TimedKeywords,
	}
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	out, err := h.svc.List(r.Context(), service.ListNotesInput{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*NoteResponse, 0, len(out.Items))
	for _, n := range out.Items {
		items = append(items, noteToResponse(n))
	}

	api.Success(w, http.StatusOK, NoteListResponse{
		Items:      items,
		NextCursor: out.Cursor,
		HasMore:    out.HasMore,
	})
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	note, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, noteToResponse(note))
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	note, err := h.svc.Update(r.Context(), id, &domain.NoteUpdate{
		Title:       req.Title,
		Summary:     req.Summary,
		KeyPoints:   req.KeyPoints,
		ActionItems: req.ActionItems,
		Notes:       req.Notes,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, noteToResponse(note))
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}

func (h *NoteHandler) Audio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	url, err := h.svc.AudioURL(r.Context(), id, audioURLExpiration)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AudioURLResponse{AudioURL: url})
}

func (h *NoteHandler) Segments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	segments, err := h.svc.Segments(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, segments)
}

func (h *NoteHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := h.search.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]*SearchResultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, &SearchResultResponse{
			Note:       noteToResponse(res.Note),
			Similarity: res.Similarity,
		})
	}

	api.Success(w, http.StatusOK, out)
}
