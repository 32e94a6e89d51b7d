package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	serverURL  string
	jsonOutput bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "showrunner",
	Short: "CLI client for the showrunner TV watchlist daemon",
	Long: `showrunner - CLI client for the showrunner TV watchlist daemon

Track TV series, reconcile their episode lists against the metadata
provider, and get notified when new episodes appear.

Run 'showrunnerd' to start the server daemon.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8183", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up on an operation after this long")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("showrunner {{.Version}}\n")
}
