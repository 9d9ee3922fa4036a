package main

import (
	"fmt"
	"os"

	"github.com/autonote-app/autonote/internal/cli"
	"github.com/autonote-app/autonote/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "autonote",
		Short: "Autonote CLI - Voice notes, transcribed and summarized",
		Long: `Autonote CLI turns voice recordings into structured study notes.

Environment variables:
  AUTONOTE_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.ProcessCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.GetCmd())
	rootCmd.AddCommand(client.EditCmd())
	rootCmd.AddCommand(client.DeleteCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.AudioCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
