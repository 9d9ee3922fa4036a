package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// ListAPIResponse represents the list API response.
type ListAPIResponse struct {
	Items      []Note `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved notes",
		Long:  "Lists saved notes, newest first, with cursor pagination.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runList(cmd, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runList(cmd *cobra.Command, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	path := "/v1/notes"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var listResp ListAPIResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No notes found.")
		return nil
	}

	fmt.Printf("Found %d notes:\n\n", len(listResp.Items))
	for i, note := range listResp.Items {
		fmt.Printf("%d. %s (%s)\n", i+1, note.Title, formatDuration(note.DurationMS))
		if note.Summary != "" {
			fmt.Printf("   %s\n", note.Summary)
		}
		fmt.Printf("   Date: %s\n", note.Date)
		fmt.Printf("   ID: %s\n", note.ID)
		if i < len(listResp.Items)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	if listResp.HasMore && listResp.NextCursor != "" {
		fmt.Printf("\n%s\n", strings.Repeat("-", 40))
		fmt.Printf("More results available. Use --cursor %s\n", listResp.NextCursor)
	}

	return nil
}
