package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vmunix/showrunner/internal/coordinator"
)

func init() {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Stay connected and print notifications as they arrive",
		Long: `Keeps the poll channel open and prints every notification the
server pushes, such as new-episode alerts from scheduled checks.
Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	s := newSession()
	defer s.Close()

	// Alerts already reach the toast printer; this surfaces everything
	// else verbatim.
	s.co.Subscribe("alert", func(n coordinator.Notification) {
		if jsonOutput {
			_ = printJSON(n)
		}
	})

	// Confirm the server is reachable before settling in.
	if _, err := s.get("/api/status", nil); err != nil {
		return fmt.Errorf("server unreachable at %s: %w", serverURL, err)
	}
	if !jsonOutput {
		fmt.Fprintf(os.Stderr, "watching %s for notifications, Ctrl-C to stop\n", serverURL)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return nil
}
