package library

import (
	"fmt"
)

func episodeCode(season, episode int) string {
	return fmt.Sprintf("s%02de%02d", season, episode)
}

func upsertEpisode(q querier, e *Episode) error {
	if e.Status == "" {
		e.Status = EpisodeWanted
	}

	// Existing episodes keep their status; refresh only updates
	// metadata that the provider may have corrected.
	_, err := q.Exec(`
		INSERT INTO episodes (series_id, season, episode, title, status, air_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (series_id, season, episode)
		DO UPDATE SET title = excluded.title, air_date = excluded.air_date`,
		e.SeriesID, e.Season, e.Episode, e.Title, e.Status, e.AirDate,
	)
	if err != nil {
		return fmt.Errorf("upsert episode %s: %w", episodeCode(e.Season, e.Episode), mapSQLiteError(err))
	}

	err = q.QueryRow(
		"SELECT id FROM episodes WHERE series_id = ? AND season = ? AND episode = ?",
		e.SeriesID, e.Season, e.Episode,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("find upserted episode: %w", err)
	}
	return nil
}

// UpsertEpisodes reconciles a provider's episode list into the series.
// Episodes not seen before are inserted with the given default status
// and returned; known episodes get their title and air date refreshed
// but keep their status.
func (s *Store) UpsertEpisodes(seriesID int64, incoming []*Episode) ([]*Episode, error) {
	tx, err := s.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	known := make(map[string]bool)
	rows, err := tx.tx.Query("SELECT season, episode FROM episodes WHERE series_id = ?", seriesID)
	if err != nil {
		return nil, fmt.Errorf("list known episodes: %w", err)
	}
	for rows.Next() {
		var season, episode int
		if err := rows.Scan(&season, &episode); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan episode key: %w", err)
		}
		known[episodeCode(season, episode)] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	var added []*Episode
	for _, e := range incoming {
		e.SeriesID = seriesID
		isNew := !known[episodeCode(e.Season, e.Episode)]
		if err := upsertEpisode(tx.tx, e); err != nil {
			return nil, err
		}
		if isNew {
			added = append(added, e)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}
	return added, nil
}

// ListEpisodes returns a series' episodes ordered by season and episode.
func (s *Store) ListEpisodes(seriesID int64) ([]*Episode, error) {
	rows, err := s.db.Query(`
		SELECT id, series_id, season, episode, title, status, air_date
		FROM episodes WHERE series_id = ?
		ORDER BY season, episode`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Episode
	for rows.Next() {
		e := &Episode{}
		if err := rows.Scan(&e.ID, &e.SeriesID, &e.Season, &e.Episode, &e.Title, &e.Status, &e.AirDate); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetEpisodeStatus updates one episode's status.
// Returns ErrNotFound if the episode does not exist.
func (s *Store) SetEpisodeStatus(id int64, status EpisodeStatus) error {
	result, err := s.db.Exec("UPDATE episodes SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("update episode %d: %w", id, mapSQLiteError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update episode %d: %w", id, ErrNotFound)
	}
	return nil
}
