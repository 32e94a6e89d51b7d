package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/vmunix/showrunner/internal/coordinator"
)

// session owns a coordinator for the lifetime of one command. Commands
// submit through it; deferred operations are picked up by the shared
// poll, and alert notifications are printed as they arrive.
type session struct {
	co *coordinator.Coordinator
}

func newSession() *session {
	// CLI invocations are short-lived and interactive, so poll tighter
	// than the dashboard defaults.
	co := coordinator.New(coordinator.Config{
		RootPath:     serverURL,
		MinInterval:  time.Second,
		MaxInterval:  5 * time.Second,
		FastInterval: 500 * time.Millisecond,
		Transport:    coordinator.NewHTTPTransport(serverURL),
		Toasts:       &toastPrinter{},
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &session{co: co}
}

func (s *session) Close() { s.co.Close() }

// call submits a request and blocks for its terminal result.
func (s *session) call(method, path string, params coordinator.Params) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	p := s.co.Submit(ctx, method, path, params)

	select {
	case id := <-p.Progress():
		if !jsonOutput {
			fmt.Fprintf(os.Stderr, "accepted as job %s, waiting...\n", id)
		}
	case <-p.Done():
	case <-ctx.Done():
	}

	result, err := p.Wait(ctx)
	if err != nil {
		var jerr *coordinator.JobError
		if errors.As(err, &jerr) {
			if msg, ok := jerr.Detail["message"].(string); ok {
				return nil, errors.New(msg)
			}
		}
		return nil, err
	}

	body, _ := result.(map[string]any)
	return body, nil
}

func (s *session) get(path string, params coordinator.Params) (map[string]any, error) {
	return s.call("GET", path, params)
}

// printJSON writes v as indented JSON, the --json output mode.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// toastPrinter renders alert toasts on stderr so they do not mix with
// command output.
type toastPrinter struct{}

func (t *toastPrinter) Show(fields map[string]any) {
	title, _ := fields["pnotify_title"].(string)
	text, _ := fields["pnotify_text"].(string)
	switch {
	case title != "" && text != "":
		fmt.Fprintf(os.Stderr, "* %s: %s\n", title, text)
	case title != "":
		fmt.Fprintf(os.Stderr, "* %s\n", title)
	case text != "":
		fmt.Fprintf(os.Stderr, "* %s\n", text)
	}
}
