package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// AudioURLAPIResponse represents the audio URL API response.
type AudioURLAPIResponse struct {
	AudioURL string `json:"audio_url"`
}

// AudioCmd creates the audio command.
func AudioCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "audio <note_id>",
		Short: "Get a note's recording",
		Long:  "Prints a short-lived download URL for the note's audio, or downloads it with -o.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAudio(cmd, args[0], outputPath, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "Download the audio to this path")

	return cmd
}

func runAudio(cmd *cobra.Command, noteID, outputPath string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/v1/notes/%s/audio", noteID))
	if err != nil {
		return fmt.Errorf("failed to get audio URL: %w", err)
	}

	var audio AudioURLAPIResponse
	if err := json.Unmarshal(resp.Data, &audio); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputPath != "" {
		if err := api.DownloadFile(audio.AudioURL, outputPath); err != nil {
			return err
		}
		fmt.Printf("Saved audio to %s\n", outputPath)
		return nil
	}

	if outputJSON {
		output, _ := json.MarshalIndent(audio, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Println(audio.AudioURL)
	}

	return nil
}
