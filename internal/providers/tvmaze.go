package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTVMazeURL = "https://api.tvmaze.com"

// TVMaze is a client for the TVMaze public API. No authentication is
// required.
type TVMaze struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// TVMazeOption configures a TVMaze client.
type TVMazeOption func(*TVMaze)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) TVMazeOption {
	return func(c *TVMaze) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) TVMazeOption {
	return func(c *TVMaze) {
		c.httpClient = hc
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(log *slog.Logger) TVMazeOption {
	return func(c *TVMaze) {
		c.log = log.With("component", "tvmaze")
	}
}

// NewTVMaze creates a TVMaze client.
func NewTVMaze(opts ...TVMazeOption) *TVMaze {
	c := &TVMaze{
		baseURL: defaultTVMazeURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tvmazeShow struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Premiered string `json:"premiered"`
	Embedded  *struct {
		Episodes []tvmazeEpisode `json:"episodes"`
	} `json:"_embedded"`
}

type tvmazeEpisode struct {
	Season  int    `json:"season"`
	Number  int    `json:"number"`
	Name    string `json:"name"`
	AirDate string `json:"airdate"`
}

type tvmazeSearchResult struct {
	Show tvmazeShow `json:"show"`
}

func (c *TVMaze) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tvmaze: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Search returns candidate series for a name query.
func (c *TVMaze) Search(ctx context.Context, query string) ([]Series, error) {
	var results []tvmazeSearchResult
	path := "/search/shows?q=" + url.QueryEscape(query)
	if err := c.get(ctx, path, &results); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	series := make([]Series, 0, len(results))
	for _, r := range results {
		series = append(series, seriesFrom(r.Show))
	}
	if c.log != nil {
		c.log.Debug("provider search", "query", query, "results", len(series))
	}
	return series, nil
}

// Get returns one series with its episode list.
func (c *TVMaze) Get(ctx context.Context, id string) (*Series, error) {
	var show tvmazeShow
	if err := c.get(ctx, "/shows/"+url.PathEscape(id)+"?embed=episodes", &show); err != nil {
		return nil, fmt.Errorf("get series %s: %w", id, err)
	}

	s := seriesFrom(show)
	if show.Embedded != nil {
		s.Episodes = make([]Episode, 0, len(show.Embedded.Episodes))
		for _, e := range show.Embedded.Episodes {
			ep := Episode{Season: e.Season, Number: e.Number, Title: e.Name}
			if t, err := time.Parse("2006-01-02", e.AirDate); err == nil {
				ep.AirDate = &t
			}
			s.Episodes = append(s.Episodes, ep)
		}
	}
	return &s, nil
}

func seriesFrom(show tvmazeShow) Series {
	status := "continuing"
	if strings.EqualFold(show.Status, "ended") {
		status = "ended"
	}
	return Series{
		ID:       fmt.Sprintf("%d", show.ID),
		Title:    show.Name,
		Status:   status,
		Premiere: show.Premiered,
	}
}
