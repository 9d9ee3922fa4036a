//go:build e2e

package e2e

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const runTimeout = 30 * time.Second

type noteResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	DurationMS  int64    `json:"duration_ms"`
	Date        string   `json:"date"`
	Transcript  string   `json:"transcript"`
	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"key_points"`
	ActionItems []string `json:"action_items"`
	Notes       string   `json:"notes,omitempty"`
	Timeline    []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"timeline"`
	TimedKeywords []struct {
		Keyword string `json:"keyword"`
		Time    int    `json:"time"`
	} `json:"timed_keywords"`
}

// TestE2E_ProcessRecording covers the full pipeline: upload, transcription,
// summarization and the persisted note.
func TestE2E_ProcessRecording(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	audio := []byte("fake m4a content for processing")
	run, err := env.UploadRecording(audio, "lecture.m4a", 7_000)
	require.NoError(t, err)
	assert.NotEmpty(t, run.RunID)
	assert.NotEmpty(t, run.RecordingID)

	final := env.WaitForRun(run.RunID, runTimeout)
	require.Equal(t, "done", final.Stage, "run failed: %s", final.Error)
	require.NotEmpty(t, final.NoteID)
	assert.Equal(t, 1, env.Speech.Submits(), "one upload should submit exactly one provider job")

	t.Run("note has transcript and summary", func(t *testing.T) {
		resp, err := env.Get("/v1/notes/" + final.NoteID)
		require.NoError(t, err)

		var note noteResponse
		require.NoError(t, json.Unmarshal(resp.Data, &note))

		assert.Equal(t, final.NoteID, note.ID)
		assert.Equal(t, "Cell Energy Lecture", note.Title)
		assert.Equal(t, "Today we discuss how mitochondria produce energy", note.Transcript)
		assert.Equal(t, "The lecture covers how cells produce energy through respiration.", note.Summary)
		assert.Equal(t, []string{"Mitochondria produce ATP", "Glycolysis happens in the cytoplasm"}, note.KeyPoints)
		assert.Equal(t, []string{"Review the Krebs cycle"}, note.ActionItems)
		assert.Equal(t, int64(7_000), note.DurationMS)
		assert.NotEmpty(t, note.Date)

		require.Len(t, note.Timeline, 7)
		assert.Equal(t, "Today", note.Timeline[0].Word)
		assert.Equal(t, 0.0, note.Timeline[0].Start)
		assert.Equal(t, "energy", note.Timeline[6].Word)
		assert.Equal(t, 6.0, note.Timeline[6].Start)

		require.Len(t, note.TimedKeywords, 1)
		assert.Equal(t, "mitochondria", note.TimedKeywords[0].Keyword)
		assert.Equal(t, 4, note.TimedKeywords[0].Time)
	})

	t.Run("note appears in list", func(t *testing.T) {
		resp, err := env.Get("/v1/notes")
		require.NoError(t, err)

		var list struct {
			Items   []noteResponse `json:"items"`
			HasMore bool           `json:"has_more"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &list))
		require.Len(t, list.Items, 1)
		assert.Equal(t, final.NoteID, list.Items[0].ID)
		assert.False(t, list.HasMore)
	})

	t.Run("segments chunk the timeline", func(t *testing.T) {
		resp, err := env.Get("/v1/notes/" + final.NoteID + "/segments")
		require.NoError(t, err)

		var segments []struct {
			Start float64 `json:"start"`
			Text  string  `json:"text"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &segments))
		require.NotEmpty(t, segments)
		assert.Equal(t, 0.0, segments[0].Start)

		var joined []string
		for _, seg := range segments {
			joined = append(joined, seg.Text)
		}
		assert.Equal(t, "Today we discuss how mitochondria produce energy", strings.Join(joined, " "))
	})

	t.Run("audio survives the rename and downloads intact", func(t *testing.T) {
		resp, err := env.Get("/v1/notes/" + final.NoteID + "/audio")
		require.NoError(t, err)

		var audioResp struct {
			AudioURL string `json:"audio_url"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &audioResp))
		require.NotEmpty(t, audioResp.AudioURL)

		downloaded, err := env.DownloadFile(audioResp.AudioURL)
		require.NoError(t, err)
		assert.Equal(t, audio, downloaded)
	})
}

// TestE2E_NoteLifecycle covers editing the user-editable fields and deletion.
func TestE2E_NoteLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	run, err := env.UploadRecording([]byte("audio bytes"), "biology.m4a", 7_000)
	require.NoError(t, err)
	final := env.WaitForRun(run.RunID, runTimeout)
	require.Equal(t, "done", final.Stage, "run failed: %s", final.Error)

	noteID := final.NoteID

	t.Run("edit changes only the requested fields", func(t *testing.T) {
		resp, err := env.Patch("/v1/notes/"+noteID, map[string]interface{}{
			"title": "Respiration, Reviewed",
			"notes": "Re-listen to the part about glycolysis.",
		})
		require.NoError(t, err)

		var note noteResponse
		require.NoError(t, json.Unmarshal(resp.Data, &note))
		assert.Equal(t, "Respiration, Reviewed", note.Title)
		assert.Equal(t, "Re-listen to the part about glycolysis.", note.Notes)

		// Untouched fields keep their pipeline values.
		assert.Equal(t, "The lecture covers how cells produce energy through respiration.", note.Summary)
		assert.Equal(t, "Today we discuss how mitochondria produce energy", note.Transcript)
	})

	t.Run("edit queues a fresh embedding", func(t *testing.T) {
		var pending int
		err := env.Pool.QueryRow(env.Ctx,
			"SELECT count(*) FROM embedding_jobs WHERE note_id = $1", noteID,
		).Scan(&pending)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, pending, 2, "create and edit should each queue a job")
	})

	t.Run("delete removes the note", func(t *testing.T) {
		_, err := env.Delete("/v1/notes/" + noteID)
		require.NoError(t, err)

		_, err = env.Get("/v1/notes/" + noteID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("delete cascades embedding jobs", func(t *testing.T) {
		var remaining int
		err := env.Pool.QueryRow(env.Ctx,
			"SELECT count(*) FROM embedding_jobs WHERE note_id = $1", noteID,
		).Scan(&remaining)
		require.NoError(t, err)
		assert.Equal(t, 0, remaining)
	})
}

// TestE2E_SemanticSearch verifies the background embedding worker and the
// search endpoint against real pgvector storage.
func TestE2E_SemanticSearch(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	env.Speech.SetWords([]string{"Cells", "burn", "glucose", "for", "fuel"})

	run, err := env.UploadRecording([]byte("audio bytes"), "lecture.m4a", 5_000)
	require.NoError(t, err)
	final := env.WaitForRun(run.RunID, runTimeout)
	require.Equal(t, "done", final.Stage, "run failed: %s", final.Error)

	env.WaitForEmbedding(final.NoteID, 10*time.Second)

	resp, err := env.Post("/v1/notes/search", map[string]interface{}{
		"query": "how do cells make energy",
		"limit": 5,
	})
	require.NoError(t, err)

	var results []struct {
		Note       noteResponse `json:"note"`
		Similarity float64      `json:"similarity"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &results))
	require.Len(t, results, 1)
	assert.Equal(t, final.NoteID, results[0].Note.ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 0.01)

	t.Run("empty query is rejected", func(t *testing.T) {
		_, err := env.Post("/v1/notes/search", map[string]interface{}{"query": "  "})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})
}

// TestE2E_UploadValidation covers the upload endpoint's input checks.
func TestE2E_UploadValidation(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("negative duration is rejected", func(t *testing.T) {
		_, err := env.UploadRecording(nil, "lecture.m4a", -1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("unknown run returns 404", func(t *testing.T) {
		_, err := env.Get("/v1/recordings/no-such-run")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("unknown note returns 404", func(t *testing.T) {
		_, err := env.Get("/v1/notes/no-such-note")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

// TestE2E_CLIWorkflow drives the built autonote binary through the main user
// journey: process, list, get, edit, search, delete.
func TestE2E_CLIWorkflow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildBinaries()

	workDir := t.TempDir()
	audioPath := filepath.Join(workDir, "lecture.m4a")
	require.NoError(t, os.WriteFile(audioPath, []byte("cli audio content"), 0o644))

	var noteID string

	t.Run("process uploads and waits for the note", func(t *testing.T) {
		output, err := env.RunAutonote(workDir, "process", audioPath, "--duration-ms", "7000")
		require.NoError(t, err, "process failed: %s", output)
		require.Contains(t, output, "Done. Note: ")

		lines := strings.Split(strings.TrimSpace(output), "\n")
		last := lines[len(lines)-1]
		noteID = strings.TrimSpace(strings.TrimPrefix(last, "Done. Note: "))
		require.NotEmpty(t, noteID)
	})

	t.Run("list shows the note", func(t *testing.T) {
		output, err := env.RunAutonote(workDir, "list")
		require.NoError(t, err, "list failed: %s", output)
		assert.Contains(t, output, "Cell Energy Lecture")
		assert.Contains(t, output, noteID)
	})

	t.Run("get prints the note as JSON", func(t *testing.T) {
		output, err := env.RunAutonote(workDir, "get", noteID, "--output")
		require.NoError(t, err, "get failed: %s", output)
		assert.Contains(t, output, noteID)
		assert.Contains(t, output, "respiration")
	})

	t.Run("edit updates the title", func(t *testing.T) {
		output, err := env.RunAutonote(workDir, "edit", noteID, "--title", "Renamed via CLI")
		require.NoError(t, err, "edit failed: %s", output)

		listOut, err := env.RunAutonote(workDir, "list")
		require.NoError(t, err)
		assert.Contains(t, listOut, "Renamed via CLI")
	})

	t.Run("search finds the note", func(t *testing.T) {
		env.WaitForEmbedding(noteID, 10*time.Second)

		output, err := env.RunAutonote(workDir, "search", "cell", "energy")
		require.NoError(t, err, "search failed: %s", output)
		assert.Contains(t, output, noteID)
	})

	t.Run("delete removes the note", func(t *testing.T) {
		output, err := env.RunAutonote(workDir, "delete", noteID)
		require.NoError(t, err, "delete failed: %s", output)
		assert.Contains(t, output, "Deleted note: "+noteID)

		listOut, err := env.RunAutonote(workDir, "list")
		require.NoError(t, err)
		assert.Contains(t, listOut, "No notes found.")
	})
}
