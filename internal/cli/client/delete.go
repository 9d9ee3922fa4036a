package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <note_id>",
		Short: "Delete a note",
		Long:  "Deletes a note and its stored audio recording.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDelete(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runDelete(cmd *cobra.Command, noteID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Delete(fmt.Sprintf("/v1/notes/%s", noteID)); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(map[string]string{
			"id":     noteID,
			"status": "deleted",
		}, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Deleted note: %s\n", noteID)
	}

	return nil
}
