package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTVMaze_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/shows", r.URL.Path)
		assert.Equal(t, "orphan black", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"show": {"id": 82, "name": "Orphan Black", "status": "Ended", "premiered": "2013-03-30"}},
			{"show": {"id": 999, "name": "Orphan", "status": "Running"}}
		]`))
	}))
	defer srv.Close()

	c := NewTVMaze(WithBaseURL(srv.URL))
	results, err := c.Search(context.Background(), "orphan black")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "82", results[0].ID)
	assert.Equal(t, "Orphan Black", results[0].Title)
	assert.Equal(t, "ended", results[0].Status)
	assert.Equal(t, "continuing", results[1].Status)
	assert.Empty(t, results[0].Episodes, "search carries no episode lists")
}

func TestTVMaze_GetWithEpisodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shows/82", r.URL.Path)
		assert.Equal(t, "episodes", r.URL.Query().Get("embed"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 82, "name": "Orphan Black", "status": "Running",
			"_embedded": {"episodes": [
				{"season": 1, "number": 1, "name": "Natural Selection", "airdate": "2013-03-30"},
				{"season": 1, "number": 2, "name": "Instinct", "airdate": ""}
			]}
		}`))
	}))
	defer srv.Close()

	c := NewTVMaze(WithBaseURL(srv.URL))
	s, err := c.Get(context.Background(), "82")
	require.NoError(t, err)

	require.Len(t, s.Episodes, 2)
	assert.Equal(t, "Natural Selection", s.Episodes[0].Title)
	require.NotNil(t, s.Episodes[0].AirDate)
	assert.Equal(t, 2013, s.Episodes[0].AirDate.Year())
	assert.Nil(t, s.Episodes[1].AirDate, "blank airdate stays nil")
}

func TestTVMaze_GetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewTVMaze(WithBaseURL(srv.URL))
	_, err := c.Get(context.Background(), "0")
	assert.ErrorIs(t, err, ErrNotFound)
}
