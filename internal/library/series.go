package library

import (
	"fmt"
	"time"
)

func addSeries(q querier, s *Series) error {
	now := time.Now()
	if s.Status == "" {
		s.Status = SeriesContinuing
	}
	result, err := q.Exec(`
		INSERT INTO series (provider_id, title, status, added_at)
		VALUES (?, ?, ?, ?)`,
		s.ProviderID, s.Title, s.Status, now,
	)
	if err != nil {
		return fmt.Errorf("insert series: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	s.ID = id
	s.AddedAt = now
	return nil
}

// AddSeries inserts a new series into the watchlist.
// Sets ID and AddedAt on the struct. Returns ErrDuplicate when the
// provider id is already tracked.
func (s *Store) AddSeries(series *Series) error { return addSeries(s.db, series) }

// AddSeries inserts a new series within a transaction.
func (t *Tx) AddSeries(series *Series) error { return addSeries(t.tx, series) }

func scanSeries(row interface{ Scan(...any) error }) (*Series, error) {
	s := &Series{}
	var checkedAt *time.Time
	if err := row.Scan(&s.ID, &s.ProviderID, &s.Title, &s.Status, &s.AddedAt, &checkedAt); err != nil {
		return nil, err
	}
	s.CheckedAt = checkedAt
	return s, nil
}

const seriesColumns = "id, provider_id, title, status, added_at, checked_at"

func getSeries(q querier, id int64) (*Series, error) {
	s, err := scanSeries(q.QueryRow(
		"SELECT "+seriesColumns+" FROM series WHERE id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("get series %d: %w", id, mapSQLiteError(err))
	}
	return s, nil
}

// GetSeries retrieves a series by ID.
// Returns ErrNotFound if the series does not exist.
func (s *Store) GetSeries(id int64) (*Series, error) { return getSeries(s.db, id) }

// GetSeries retrieves a series by ID within a transaction.
func (t *Tx) GetSeries(id int64) (*Series, error) { return getSeries(t.tx, id) }

func getSeriesByProviderID(q querier, providerID string) (*Series, error) {
	s, err := scanSeries(q.QueryRow(
		"SELECT "+seriesColumns+" FROM series WHERE provider_id = ?", providerID))
	if err != nil {
		return nil, fmt.Errorf("get series by provider id %q: %w", providerID, mapSQLiteError(err))
	}
	return s, nil
}

// GetSeriesByProviderID retrieves a series by its provider identifier.
// Returns ErrNotFound if the series is not tracked.
func (s *Store) GetSeriesByProviderID(providerID string) (*Series, error) {
	return getSeriesByProviderID(s.db, providerID)
}

// ListSeries returns the full watchlist with episode counts, ordered by
// title.
func (s *Store) ListSeries() ([]*SeriesSummary, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.provider_id, s.title, s.status, s.added_at, s.checked_at,
		       COUNT(e.id),
		       COUNT(CASE WHEN e.status = 'wanted' THEN 1 END)
		FROM series s
		LEFT JOIN episodes e ON e.series_id = s.id
		GROUP BY s.id
		ORDER BY s.title COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*SeriesSummary
	for rows.Next() {
		sum := &SeriesSummary{}
		var checkedAt *time.Time
		if err := rows.Scan(&sum.ID, &sum.ProviderID, &sum.Title, &sum.Status,
			&sum.AddedAt, &checkedAt, &sum.EpisodeCount, &sum.WantedCount); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		sum.CheckedAt = checkedAt
		out = append(out, sum)
	}
	return out, rows.Err()
}

func deleteSeries(q querier, id int64) error {
	result, err := q.Exec("DELETE FROM series WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete series %d: %w", id, mapSQLiteError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete series %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteSeries removes a series and, via cascade, its episodes.
// Returns ErrNotFound if the series does not exist.
func (s *Store) DeleteSeries(id int64) error { return deleteSeries(s.db, id) }

// DeleteSeries removes a series within a transaction.
func (t *Tx) DeleteSeries(id int64) error { return deleteSeries(t.tx, id) }

// SetChecked records when the series was last checked for new episodes.
func (s *Store) SetChecked(id int64, at time.Time) error {
	_, err := s.db.Exec("UPDATE series SET checked_at = ? WHERE id = ?", at, id)
	if err != nil {
		return fmt.Errorf("set checked %d: %w", id, err)
	}
	return nil
}

// UpdateSeriesStatus records the provider-reported airing status.
func (s *Store) UpdateSeriesStatus(id int64, status SeriesStatus) error {
	_, err := s.db.Exec("UPDATE series SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("update series status %d: %w", id, err)
	}
	return nil
}
