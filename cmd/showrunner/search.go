package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/showrunner/internal/coordinator"
)

func init() {
	searchCmd := &cobra.Command{
		Use:   "search <name>",
		Short: "Search the metadata provider for a show",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	s := newSession()
	defer s.Close()

	query := strings.Join(args, " ")
	body, err := s.get("/api/shows/search", coordinator.Params{"name": query})
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(body)
	}

	results, _ := body["results"].([]any)
	if len(results) == 0 {
		fmt.Printf("No results for %q\n", query)
		return nil
	}
	fmt.Printf("%-10s %-45s %-11s %-7s %s\n", "ID", "TITLE", "STATUS", "MATCH", "PREMIERED")
	for _, raw := range results {
		r, _ := raw.(map[string]any)
		premiere, _ := r["premiere"].(string)
		confidence, _ := r["confidence"].(string)
		fmt.Printf("%-10s %-45s %-11s %-7s %s\n", r["provider_id"], r["title"], r["status"], confidence, premiere)
	}
	return nil
}
