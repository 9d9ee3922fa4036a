package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// Run represents a processing run from the API.
type Run struct {
	RunID       string `json:"run_id"`
	RecordingID string `json:"recording_id"`
	Stage       string `json:"stage"`
	SubStatus   string `json:"sub_status,omitempty"`
	Error       string `json:"error,omitempty"`
	NoteID      string `json:"note_id,omitempty"`
}

const runPollInterval = 2 * time.Second

// ProcessCmd creates the process command.
func ProcessCmd() *cobra.Command {
	var (
		durationMS int64
		fileName   string
		noWait     bool
	)

	cmd := &cobra.Command{
		Use:   "process <audio_file>",
		Short: "Upload a recording and process it into a note",
		Long: `Uploads an audio recording and runs the processing pipeline:
transcription, summarization and note creation. By default the command
waits and reports progress until the run finishes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runProcess(cmd, args[0], durationMS, fileName, noWait, outputJSON)
		},
	}

	cmd.Flags().Int64Var(&durationMS, "duration-ms", 0, "Recording duration in milliseconds (required)")
	cmd.Flags().StringVar(&fileName, "filename", "", "Override the recording file name")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Start the run and exit without waiting")
	cmd.MarkFlagRequired("duration-ms")

	return cmd
}

func runProcess(cmd *cobra.Command, audioPath string, durationMS int64, fileName string, noWait, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.UploadRecording("/v1/recordings", audioPath, durationMS, fileName)
	if err != nil {
		return fmt.Errorf("failed to start processing: %w", err)
	}

	var run Run
	if err := json.Unmarshal(resp.Data, &run); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if noWait {
		if outputJSON {
			output, _ := json.MarshalIndent(run, "", "  ")
			fmt.Println(string(output))
		} else {
			fmt.Printf("Run started: %s\n", run.RunID)
		}
		return nil
	}

	final, err := waitForRun(api, run.RunID, outputJSON)
	if err != nil {
		return err
	}

	if outputJSON {
		output, _ := json.MarshalIndent(final, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if final.Stage == "failed" {
		return fmt.Errorf("processing failed: %s", final.Error)
	}

	fmt.Printf("Done. Note: %s\n", final.NoteID)
	return nil
}

func waitForRun(api *APIClient, runID string, quiet bool) (*Run, error) {
	lastStage := ""
	for {
		resp, err := api.Get(fmt.Sprintf("/v1/recordings/%s", runID))
		if err != nil {
			return nil, fmt.Errorf("failed to poll run: %w", err)
		}

		var run Run
		if err := json.Unmarshal(resp.Data, &run); err != nil {
			return nil, fmt.Errorf("failed to parse run: %w", err)
		}

		if !quiet && run.Stage != lastStage {
			if run.SubStatus != "" {
				fmt.Printf("  %s (%s)\n", run.Stage, run.SubStatus)
			} else {
				fmt.Printf("  %s\n", run.Stage)
			}
			lastStage = run.Stage
		}

		if run.Stage == "done" || run.Stage == "failed" {
			return &run, nil
		}

		time.Sleep(runPollInterval)
	}
}
