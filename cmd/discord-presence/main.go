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
		Use:   "discord-presence",
		Short: "Publish a Discord Rich Presence from the command line",
		Long: `discord-presence talks to the running Discord desktop client over
its local IPC pipe and publishes the activity described in a YAML
config file. It stays connected, prints inbound events (joins,
spectates, join requests) and reconnects when Discord restarts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
