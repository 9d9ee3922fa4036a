package main

import (
	"fmt"
	"os"

	"github.com/autonote-app/autonote/internal/cli"
	"github.com/autonote-app/autonote/internal/cli/daemon"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "autonoted",
		Short: "Autonote daemon",
		Long:  "Autonote daemon for running the voice note processing API server",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(daemon.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
