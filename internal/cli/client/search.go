package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResult is one hit from semantic search.
type SearchResult struct {
	Note       Note    `json:"note"`
	Similarity float64 `json:"similarity"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search notes semantically",
		Long:  "Searches saved notes by meaning, using summary embeddings.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(cmd, strings.Join(args, " "), limit, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, limit int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/v1/notes/search", SearchRequest{Query: query, Limit: limit})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var results []SearchResult
	if err := json.Unmarshal(resp.Data, &results); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No matching notes found.")
		return nil
	}

	fmt.Printf("Found %d notes:\n\n", len(results))
	for i, res := range results {
		fmt.Printf("%d. %s (%.2f)\n", i+1, res.Note.Title, res.Similarity)
		if res.Note.Summary != "" {
			fmt.Printf("   %s\n", res.Note.Summary)
		}
		fmt.Printf("   ID: %s\n", res.Note.ID)
		if i < len(results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
