package main

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	_ "modernc.org/sqlite"

	"github.com/vmunix/showrunner/internal/api"
	"github.com/vmunix/showrunner/internal/jobs"
	"github.com/vmunix/showrunner/internal/library"
	"github.com/vmunix/showrunner/internal/manager"
	"github.com/vmunix/showrunner/internal/migrations"
	"github.com/vmunix/showrunner/internal/providers"
	"github.com/vmunix/showrunner/internal/providers/mocks"
)

// startTestServer runs the full server stack and points the package
// globals at it, so sessions behave exactly as a user invocation would.
func startTestServer(t *testing.T, blockFor time.Duration) *mocks.MockProvider {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(migrations.InitialSQL)
	require.NoError(t, err)

	store := library.NewStore(db)
	provider := mocks.NewMockProvider(gomock.NewController(t))
	queue := jobs.NewQueue(nil)
	mgr := manager.New(store, provider, queue, nil)
	srv := api.New(store, mgr, queue, api.Config{Version: "test", BlockFor: blockFor}, nil)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	oldURL, oldTimeout := serverURL, timeout
	serverURL, timeout = ts.URL, 30*time.Second
	t.Cleanup(func() { serverURL, timeout = oldURL, oldTimeout })

	return provider
}

func TestCall_InlineResponse(t *testing.T) {
	startTestServer(t, time.Second)

	s := newSession()
	defer s.Close()

	body, err := s.get("/api/status", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
}

func TestCall_DeferredAddResolvesThroughPoll(t *testing.T) {
	// Zero block window forces the server to defer, so the result can
	// only arrive through the coordinator's poll channel.
	provider := startTestServer(t, 0)
	provider.EXPECT().Get(gomock.Any(), "18").Return(&providers.Series{
		ID:     "18",
		Title:  "The Expanse",
		Status: "continuing",
	}, nil)

	s := newSession()
	defer s.Close()

	body, err := s.call("PUT", "/api/shows/18", nil)
	require.NoError(t, err)
	assert.Equal(t, "The Expanse", body["title"])
}

func TestResolveShowID_PicksBestMatch(t *testing.T) {
	provider := startTestServer(t, time.Second)
	provider.EXPECT().Search(gomock.Any(), "the expanse").Return([]providers.Series{
		{ID: "1", Title: "Expanding Universe"},
		{ID: "18", Title: "The Expanse"},
	}, nil)

	s := newSession()
	defer s.Close()

	id, err := resolveShowID(s, "the expanse")
	require.NoError(t, err)
	assert.Equal(t, "18", id)
}

func TestResolveShowID_RefusesWeakMatch(t *testing.T) {
	provider := startTestServer(t, time.Second)
	provider.EXPECT().Search(gomock.Any(), "zq9 nonsense").Return([]providers.Series{
		{ID: "1", Title: "Expanding Universe"},
	}, nil)

	s := newSession()
	defer s.Close()

	_, err := resolveShowID(s, "zq9 nonsense")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expanding Universe")
}

func TestCall_JobErrorSurfacesMessage(t *testing.T) {
	provider := startTestServer(t, time.Second)
	provider.EXPECT().Get(gomock.Any(), "404").Return(nil, providers.ErrNotFound)

	s := newSession()
	defer s.Close()

	_, err := s.call("PUT", "/api/shows/404", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
