package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	s := newSession()
	defer s.Close()

	body, err := s.get("/api/status", nil)
	if err != nil {
		return fmt.Errorf("server unreachable at %s: %w", serverURL, err)
	}
	if jsonOutput {
		return printJSON(body)
	}
	fmt.Printf("Server %s: %v (version %v)\n", serverURL, body["status"], body["version"])
	return nil
}
