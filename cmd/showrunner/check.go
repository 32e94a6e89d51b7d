package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Sweep the watchlist for new episodes now",
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	s := newSession()
	defer s.Close()

	body, err := s.get("/api/shows/check", nil)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(body)
	}

	fmt.Printf("Checked %v show(s)\n", body["checked"])
	if newEps, ok := body["new_episodes"].(map[string]any); ok && len(newEps) > 0 {
		for title, codes := range newEps {
			list, _ := codes.([]any)
			fmt.Printf("  %s: %d new\n", title, len(list))
		}
	} else {
		fmt.Println("No new episodes.")
	}
	if errs, ok := body["errors"].([]any); ok {
		for _, e := range errs {
			fmt.Printf("  error: %v\n", e)
		}
	}
	return nil
}
