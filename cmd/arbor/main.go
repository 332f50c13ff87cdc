package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "arbor",
		Short: "Server-driven component trees with scoped context propagation",
		Long: `Arbor runs component trees on the server and pushes updates to a
thin browser client.

An ancestor component publishes a typed context value; any descendant
reads it without prop drilling, and changing the value re-renders
exactly the components that read it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
