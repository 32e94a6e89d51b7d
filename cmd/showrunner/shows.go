package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/showrunner/internal/coordinator"
	"github.com/vmunix/showrunner/internal/search"
)

func init() {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked shows",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	episodesCmd := &cobra.Command{
		Use:   "episodes <id>",
		Short: "List a show's episodes",
		Args:  cobra.ExactArgs(1),
		RunE:  runEpisodes,
	}

	addCmd := &cobra.Command{
		Use:   "add <provider-id | name>",
		Short: "Track a show by provider id or by name",
		Long: `Adds a show to the watchlist. Pass a numeric provider id from
'showrunner search', or a name: the name is searched and the show is
added when a single candidate matches it closely enough. Metadata and
the episode list are fetched in the background; the command waits for
the result.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAdd,
	}

	removeCmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Stop tracking a show",
		Args:  cobra.ExactArgs(1),
		RunE:  runRemove,
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh <id>",
		Short: "Re-fetch a show's metadata and episode list",
		Args:  cobra.ExactArgs(1),
		RunE:  runRefresh,
	}

	rootCmd.AddCommand(listCmd, episodesCmd, addCmd, removeCmd, refreshCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	s := newSession()
	defer s.Close()

	body, err := s.get("/api/shows", nil)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(body)
	}

	shows, _ := body["shows"].([]any)
	if len(shows) == 0 {
		fmt.Println("No shows tracked.")
		return nil
	}
	fmt.Printf("%-5s %-40s %-11s %9s %7s\n", "ID", "TITLE", "STATUS", "EPISODES", "WANTED")
	for _, raw := range shows {
		show, _ := raw.(map[string]any)
		fmt.Printf("%-5.0f %-40s %-11s %9.0f %7.0f\n",
			show["id"], show["title"], show["status"], show["episodes"], show["wanted"])
	}
	return nil
}

func runEpisodes(cmd *cobra.Command, args []string) error {
	s := newSession()
	defer s.Close()

	body, err := s.get("/api/shows/"+args[0]+"/episodes", nil)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(body)
	}

	episodes, _ := body["episodes"].([]any)
	if len(episodes) == 0 {
		fmt.Println("No episodes.")
		return nil
	}
	fmt.Printf("%-8s %-45s %-11s %s\n", "CODE", "TITLE", "STATUS", "AIRED")
	for _, raw := range episodes {
		ep, _ := raw.(map[string]any)
		aired, _ := ep["air_date"].(string)
		fmt.Printf("%-8s %-45s %-11s %s\n", ep["code"], ep["title"], ep["status"], aired)
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	s := newSession()
	defer s.Close()

	id := strings.Join(args, " ")
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		resolved, err := resolveShowID(s, id)
		if err != nil {
			return err
		}
		id = resolved
	}

	body, err := s.call("PUT", "/api/shows/"+id, nil)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(body)
	}
	fmt.Printf("Added %q (%v episodes)\n", body["title"], body["episodes"])
	return nil
}

// resolveShowID turns a show name into a provider id by searching and
// picking the best title match. A medium-confidence match is required;
// anything weaker lists the candidates instead of guessing.
func resolveShowID(s *session, name string) (string, error) {
	body, err := s.get("/api/shows/search", coordinator.Params{"name": name})
	if err != nil {
		return "", err
	}

	results, _ := body["results"].([]any)
	titles := make([]string, 0, len(results))
	idByTitle := make(map[string]string, len(results))
	for _, raw := range results {
		r, _ := raw.(map[string]any)
		title, _ := r["title"].(string)
		pid, _ := r["provider_id"].(string)
		titles = append(titles, title)
		if _, seen := idByTitle[title]; !seen {
			idByTitle[title] = pid
		}
	}

	best := search.BestMatch(name, titles)
	if best.Confidence < search.ConfidenceMedium {
		if len(titles) == 0 {
			return "", fmt.Errorf("no show found matching %q", name)
		}
		return "", fmt.Errorf("no close match for %q; candidates: %s", name, strings.Join(titles, ", "))
	}
	return idByTitle[best.Title], nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	s := newSession()
	defer s.Close()

	body, err := s.call("DELETE", "/api/shows/"+args[0], nil)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(body)
	}
	fmt.Printf("Removed %q\n", body["title"])
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	s := newSession()
	defer s.Close()

	body, err := s.call("POST", "/api/shows/"+args[0]+"/refresh", nil)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(body)
	}

	added, _ := body["new_episodes"].([]any)
	if len(added) == 0 {
		fmt.Printf("%q is up to date\n", body["title"])
		return nil
	}
	fmt.Printf("%q: %d new episode(s)\n", body["title"], len(added))
	for _, code := range added {
		fmt.Printf("  %v\n", code)
	}
	return nil
}
