package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/vmunix/showrunner/internal/library"
)

// Response types

type showResponse struct {
	ID         int64  `json:"id"`
	ProviderID string `json:"provider_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Episodes   int    `json:"episodes"`
	Wanted     int    `json:"wanted"`
	AddedAt    string `json:"added_at"`
	CheckedAt  string `json:"checked_at,omitempty"`
}

type listShowsResponse struct {
	Shows []showResponse `json:"shows"`
	Total int            `json:"total"`
}

type episodeResponse struct {
	ID      int64  `json:"id"`
	Code    string `json:"code"`
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	AirDate string `json:"air_date,omitempty"`
}

func showFrom(s *library.SeriesSummary) showResponse {
	resp := showResponse{
		ID:         s.ID,
		ProviderID: s.ProviderID,
		Title:      s.Title,
		Status:     string(s.Status),
		Episodes:   s.EpisodeCount,
		Wanted:     s.WantedCount,
		AddedAt:    s.AddedAt.Format(time.RFC3339),
	}
	if s.CheckedAt != nil {
		resp.CheckedAt = s.CheckedAt.Format(time.RFC3339)
	}
	return resp
}

// Handlers

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}

func (s *Server) listShows(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListSeries()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	resp := listShowsResponse{Shows: []showResponse{}, Total: len(list)}
	for _, entry := range list {
		resp.Shows = append(resp.Shows, showFrom(entry))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listEpisodes(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid series id")
		return
	}
	if _, err := s.store.GetSeries(id); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "series not tracked")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	eps, err := s.store.ListEpisodes(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	out := []episodeResponse{}
	for _, e := range eps {
		resp := episodeResponse{
			ID:      e.ID,
			Code:    e.Code(),
			Season:  e.Season,
			Episode: e.Episode,
			Title:   e.Title,
			Status:  string(e.Status),
		}
		if e.AirDate != nil {
			resp.AirDate = e.AirDate.Format("2006-01-02")
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{"episodes": out})
}

// addShow tracks a new series; the path id is the provider's series id.
// Metadata and episode fetching can be slow, so the work is deferred.
func (s *Server) addShow(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	s.deferred(w, r, defaultHintMS, func(ctx context.Context) (any, error) {
		series, added, err := s.manager.AddShow(ctx, providerID)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"id":       series.ID,
			"title":    series.Title,
			"episodes": added,
		}, nil
	})
}

func (s *Server) deleteShow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid series id")
		return
	}
	s.deferred(w, r, defaultHintMS, func(ctx context.Context) (any, error) {
		series, err := s.manager.RemoveShow(ctx, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"title": series.Title}, nil
	})
}

func (s *Server) refreshShow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid series id")
		return
	}
	s.deferred(w, r, defaultHintMS, func(ctx context.Context) (any, error) {
		series, added, err := s.manager.Refresh(ctx, id)
		if err != nil {
			return nil, err
		}
		codes := make([]string, 0, len(added))
		for _, e := range added {
			codes = append(codes, e.Code())
		}
		return map[string]any{
			"title":        series.Title,
			"new_episodes": codes,
		}, nil
	})
}

func (s *Server) searchShows(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("name")
	if query == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "missing name parameter")
		return
	}
	s.deferred(w, r, interactiveHintMS, func(ctx context.Context) (any, error) {
		results, err := s.manager.SearchShows(ctx, query)
		if err != nil {
			return nil, err
		}
		out := []map[string]any{}
		for _, res := range results {
			out = append(out, map[string]any{
				"provider_id": res.ID,
				"title":       res.Title,
				"status":      res.Status,
				"premiere":    res.Premiere,
				"score":       res.Score,
				"confidence":  res.Confidence.String(),
			})
		}
		return map[string]any{"results": out}, nil
	})
}

func (s *Server) checkShows(w http.ResponseWriter, r *http.Request) {
	s.deferred(w, r, interactiveHintMS, func(ctx context.Context) (any, error) {
		return s.manager.Check(ctx)
	})
}

func (s *Server) setEpisodeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid episode id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid body")
		return
	}
	status := library.EpisodeStatus(req.Status)
	switch status {
	case library.EpisodeWanted, library.EpisodeDownloaded, library.EpisodeIgnored:
	default:
		writeError(w, http.StatusBadRequest, "bad_request", "unknown status")
		return
	}

	if err := s.store.SetEpisodeStatus(id, status); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "episode not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}
