// Package manager implements watchlist operations: adding and removing
// shows, refreshing their metadata, and checking for new episodes.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/showrunner/internal/library"
	"github.com/vmunix/showrunner/internal/providers"
	"github.com/vmunix/showrunner/internal/search"
)

// Notifier receives out-of-band notifications produced by background
// operations. The jobs queue implements it.
type Notifier interface {
	Notify(ntype string, fields map[string]any)
}

// CacheInvalidator is implemented by providers that cache lookups.
// Refresh drops the entry first so it never reports against stale data.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, id string) error
}

// Manager coordinates the store, the metadata provider, and the
// notification queue.
type Manager struct {
	store    *library.Store
	provider providers.Provider
	notifier Notifier
	logger   *slog.Logger
}

// New creates a manager. notifier may be nil to disable notifications.
func New(store *library.Store, provider providers.Provider, notifier Notifier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		provider: provider,
		notifier: notifier,
		logger:   logger,
	}
}

// AddShow adds a series to the watchlist by provider id, fetching its
// metadata and episode list. Adding an already-tracked show is
// idempotent and returns the existing series.
func (m *Manager) AddShow(ctx context.Context, providerID string) (*library.Series, int, error) {
	if existing, err := m.store.GetSeriesByProviderID(providerID); err == nil {
		m.logger.Debug("show already tracked", "provider_id", providerID)
		return existing, 0, nil
	} else if !errors.Is(err, library.ErrNotFound) {
		return nil, 0, err
	}

	info, err := m.provider.Get(ctx, providerID)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch metadata: %w", err)
	}

	series := &library.Series{
		ProviderID: providerID,
		Title:      info.Title,
		Status:     library.SeriesStatus(info.Status),
	}
	if err := m.store.AddSeries(series); err != nil {
		return nil, 0, err
	}

	added, err := m.store.UpsertEpisodes(series.ID, episodesFrom(info.Episodes))
	if err != nil {
		return nil, 0, fmt.Errorf("store episodes: %w", err)
	}

	m.logger.Info("show added", "title", info.Title, "episodes", len(added))
	return series, len(added), nil
}

// RemoveShow deletes a series and its episodes from the watchlist.
func (m *Manager) RemoveShow(ctx context.Context, id int64) (*library.Series, error) {
	series, err := m.store.GetSeries(id)
	if err != nil {
		return nil, err
	}
	if err := m.store.DeleteSeries(id); err != nil {
		return nil, err
	}
	m.logger.Info("show removed", "title", series.Title)
	return series, nil
}

// Refresh re-fetches a series' metadata and reconciles its episode
// list. It returns the episodes not seen before.
func (m *Manager) Refresh(ctx context.Context, id int64) (*library.Series, []*library.Episode, error) {
	series, err := m.store.GetSeries(id)
	if err != nil {
		return nil, nil, err
	}

	if inv, ok := m.provider.(CacheInvalidator); ok {
		if err := inv.Invalidate(ctx, series.ProviderID); err != nil {
			m.logger.Warn("cache invalidation failed", "provider_id", series.ProviderID, "error", err)
		}
	}

	info, err := m.provider.Get(ctx, series.ProviderID)
	if err != nil {
		return nil, nil, fmt.Errorf("refresh %q: %w", series.Title, err)
	}

	if status := library.SeriesStatus(info.Status); status != series.Status {
		if err := m.store.UpdateSeriesStatus(id, status); err != nil {
			return nil, nil, err
		}
		series.Status = status
	}

	added, err := m.store.UpsertEpisodes(id, episodesFrom(info.Episodes))
	if err != nil {
		return nil, nil, fmt.Errorf("reconcile episodes: %w", err)
	}
	return series, added, nil
}

// SearchResult pairs a provider hit with how well its title matches the
// query.
type SearchResult struct {
	providers.Series
	Score      float64
	Confidence search.Confidence
}

// SearchShows queries the provider and ranks the results by title
// similarity, best match first. Results below the match floor keep
// their provider order after the ranked ones, tagged ConfidenceNone.
func (m *Manager) SearchShows(ctx context.Context, query string) ([]SearchResult, error) {
	results, err := m.provider.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(results))
	byTitle := make(map[string][]providers.Series)
	for _, s := range results {
		titles = append(titles, s.Title)
		byTitle[s.Title] = append(byTitle[s.Title], s)
	}

	out := make([]SearchResult, 0, len(results))
	ranked := make(map[string]int) // how many hits per title the rank pass consumed
	for _, match := range search.Rank(query, titles) {
		hits := byTitle[match.Title]
		i := ranked[match.Title]
		if i >= len(hits) {
			continue
		}
		ranked[match.Title]++
		out = append(out, SearchResult{Series: hits[i], Score: match.Score, Confidence: match.Confidence})
	}

	// Whatever the rank pass dropped stays visible at the bottom; the
	// provider may know the show under a title the matcher cannot score.
	for _, s := range results {
		if ranked[s.Title] > 0 {
			ranked[s.Title]--
			continue
		}
		out = append(out, SearchResult{Series: s, Confidence: search.ConfidenceNone})
	}
	return out, nil
}

// CheckReport summarizes one pass over the watchlist.
type CheckReport struct {
	Checked     int                 `json:"checked"`
	NewEpisodes map[string][]string `json:"new_episodes"` // series title -> episode codes
	Errors      []string            `json:"errors,omitempty"`
}

// Check refreshes every watched series and reports episodes that
// appeared since the last pass. A per-series failure is recorded and
// does not stop the remaining series. When new episodes turn up, an
// alert notification is emitted for the dashboard.
func (m *Manager) Check(ctx context.Context) (*CheckReport, error) {
	watchlist, err := m.store.ListSeries()
	if err != nil {
		return nil, err
	}

	report := &CheckReport{NewEpisodes: map[string][]string{}}
	now := time.Now()
	total := 0

	for _, entry := range watchlist {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, added, err := m.Refresh(ctx, entry.ID)
		if err != nil {
			m.logger.Warn("check failed for series", "title", entry.Title, "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", entry.Title, err))
			continue
		}
		report.Checked++
		if err := m.store.SetChecked(entry.ID, now); err != nil {
			return nil, err
		}
		for _, e := range added {
			report.NewEpisodes[entry.Title] = append(report.NewEpisodes[entry.Title], e.Code())
			total++
		}
	}

	if total > 0 && m.notifier != nil {
		m.notifier.Notify("alert", map[string]any{
			"title": "New episodes",
			"text":  fmt.Sprintf("%d new episode(s) found, see {{root}}/shows", total),
		})
	}

	m.logger.Info("watchlist checked", "series", report.Checked, "new_episodes", total)
	return report, nil
}

// episodesFrom converts provider records, skipping specials that carry
// no episode number.
func episodesFrom(eps []providers.Episode) []*library.Episode {
	out := make([]*library.Episode, 0, len(eps))
	for _, e := range eps {
		if e.Season <= 0 || e.Number <= 0 {
			continue
		}
		out = append(out, &library.Episode{
			Season:  e.Season,
			Episode: e.Number,
			Title:   e.Title,
			AirDate: e.AirDate,
		})
	}
	return out
}
