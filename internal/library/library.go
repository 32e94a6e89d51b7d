// Package library manages the series watchlist and its episodes.
package library

import (
	"time"
)

// SeriesStatus is the airing state reported by the metadata provider.
type SeriesStatus string

const (
	SeriesContinuing SeriesStatus = "continuing"
	SeriesEnded      SeriesStatus = "ended"
)

// EpisodeStatus tracks what we want done with an episode.
type EpisodeStatus string

const (
	EpisodeWanted     EpisodeStatus = "wanted"
	EpisodeDownloaded EpisodeStatus = "downloaded"
	EpisodeIgnored    EpisodeStatus = "ignored"
)

// Series is one watched show.
type Series struct {
	ID         int64
	ProviderID string
	Title      string
	Status     SeriesStatus
	AddedAt    time.Time
	CheckedAt  *time.Time
}

// Episode is a single episode of a watched series.
type Episode struct {
	ID       int64
	SeriesID int64
	Season   int
	Episode  int
	Title    string
	Status   EpisodeStatus
	AirDate  *time.Time
}

// Code renders the SxxEyy episode code used in release names and the UI.
func (e *Episode) Code() string {
	return episodeCode(e.Season, e.Episode)
}

// SeriesSummary is a watchlist row with episode counts.
type SeriesSummary struct {
	Series
	EpisodeCount int
	WantedCount  int
}
