package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// EditRequest carries the editable note fields. Only flags the user set are
// sent; absent fields stay unchanged on the server.
type EditRequest struct {
	Title       *string   `json:"title,omitempty"`
	Summary     *string   `json:"summary,omitempty"`
	KeyPoints   *[]string `json:"key_points,omitempty"`
	ActionItems *[]string `json:"action_items,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
}

// EditCmd creates the edit command.
func EditCmd() *cobra.Command {
	var (
		title       string
		summary     string
		keyPoints   []string
		actionItems []string
		notes       string
	)

	cmd := &cobra.Command{
		Use:   "edit <note_id>",
		Short: "Edit a note's user-editable fields",
		Long: `Edits a note. Only title, summary, key points, action items and
personal notes can change; the transcript and timeline are immutable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			var req EditRequest
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("summary") {
				req.Summary = &summary
			}
			if cmd.Flags().Changed("key-point") {
				req.KeyPoints = &keyPoints
			}
			if cmd.Flags().Changed("action-item") {
				req.ActionItems = &actionItems
			}
			if cmd.Flags().Changed("notes") {
				req.Notes = &notes
			}

			return runEdit(cmd, args[0], req, outputJSON)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&summary, "summary", "", "New summary")
	cmd.Flags().StringArrayVar(&keyPoints, "key-point", nil, "Key point (repeatable, replaces all)")
	cmd.Flags().StringArrayVar(&actionItems, "action-item", nil, "Action item (repeatable, replaces all)")
	cmd.Flags().StringVar(&notes, "notes", "", "Personal notes")

	return cmd
}

func runEdit(cmd *cobra.Command, noteID string, req EditRequest, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Patch(fmt.Sprintf("/v1/notes/%s", noteID), req)
	if err != nil {
		return fmt.Errorf("failed to edit note: %w", err)
	}

	var note Note
	if err := json.Unmarshal(resp.Data, &note); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(note, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Updated note: %s\n", note.ID)
	fmt.Printf("Title: %s\n", note.Title)
	return nil
}
