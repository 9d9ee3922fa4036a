package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	var showTranscript bool

	cmd := &cobra.Command{
		Use:     "get <note_id>",
		Short:   "Get a note by ID",
		Long:    "Retrieves a note by its ID and displays the summary, key points and action items.",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(cmd, args[0], showTranscript, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&showTranscript, "transcript", false, "Include the full transcript")

	return cmd
}

func runGet(cmd *cobra.Command, noteID string, showTranscript, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/v1/notes/%s", noteID))
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}

	var note Note
	if err := json.Unmarshal(resp.Data, &note); err != nil {
		return fmt.Errorf("failed to parse note: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(note, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Title: %s\n", note.Title)
	fmt.Printf("Date: %s\n", note.Date)
	fmt.Printf("Duration: %s\n", formatDuration(note.DurationMS))
	fmt.Println()
	fmt.Println("--- Summary ---")
	fmt.Println(note.Summary)

	if len(note.KeyPoints) > 0 {
		fmt.Println()
		fmt.Println("--- Key Points ---")
		for _, p := range note.KeyPoints {
			fmt.Printf("  - %s\n", p)
		}
	}

	if len(note.ActionItems) > 0 {
		fmt.Println()
		fmt.Println("--- Action Items ---")
		for _, a := range note.ActionItems {
			fmt.Printf("  - %s\n", a)
		}
	}

	if len(note.TimedKeywords) > 0 {
		fmt.Println()
		fmt.Println("--- Topics ---")
		for _, k := range note.TimedKeywords {
			fmt.Printf("  %4ds  %s\n", k.Time, k.Keyword)
		}
	}

	if note.Notes != "" {
		fmt.Println()
		fmt.Println("--- Notes ---")
		fmt.Println(note.Notes)
	}

	if showTranscript {
		fmt.Println()
		fmt.Println("--- Transcript ---")
		fmt.Println(note.Transcript)
	}

	return nil
}
