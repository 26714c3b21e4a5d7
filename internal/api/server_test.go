package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/gridscraper/internal/extract"
	"github.com/JakeFAU/gridscraper/internal/grid"
	"github.com/JakeFAU/gridscraper/internal/runner"
)

// TestServerProbes verifies the health and readiness probes.
func TestServerProbes(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, zap.NewNop())
	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		require.Equal(t, http.StatusOK, rec.Code, path)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, want, body["status"])
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	}
}

// TestServerMetricsEndpoint verifies the Prometheus exposition is served.
func TestServerMetricsEndpoint(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, zap.NewNop())
	// Prime the request counter so it shows up in the exposition.
	server.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gridscraper_active_sessions")
}

// TestServerListSessions verifies the session board endpoint.
func TestServerListSessions(t *testing.T) {
	t.Parallel()

	board := NewBoard()
	board.Started(0, grid.Environment{SessionName: "Win_Chrome", Browser: "Chrome"})
	board.Started(1, grid.Environment{SessionName: "Mac_Safari", Browser: "Safari"})
	board.Finished(0, runner.Report{
		Environment: grid.Environment{SessionName: "Win_Chrome", Browser: "Chrome"},
		Status:      grid.Passed(grid.ReasonCompleted),
		Result:      extract.Result{{Index: 1, Title: extract.Found("Opinión")}},
		Duration:    2 * time.Second,
	})

	server := NewServer(board, zap.NewNop())
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Sessions []SessionView `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sessions, 2)
	assert.Equal(t, SessionView{
		Session:  "Win_Chrome",
		Browser:  "Chrome",
		State:    "passed",
		Reason:   grid.ReasonCompleted,
		Articles: 1,
		Titles:   []string{"Opinión"},
		Duration: "2s",
	}, body.Sessions[0])
	assert.Equal(t, "running", body.Sessions[1].State)
}

// TestBoardRecordsErrors ensures session errors are shown on the board.
func TestBoardRecordsErrors(t *testing.T) {
	t.Parallel()

	board := NewBoard()
	board.Finished(0, runner.Report{
		Environment: grid.Environment{Browser: "firefox"},
		Status:      grid.Failed(grid.ReasonException),
		Err:         errors.New("session not created"),
	})
	snap := board.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "unknown", snap[0].Session)
	assert.Equal(t, "session not created", snap[0].Error)
}

// TestBoardKeepsDuplicateNamesApart ensures environments sharing a name, or
// having none, each keep their own entry.
func TestBoardKeepsDuplicateNamesApart(t *testing.T) {
	t.Parallel()

	board := NewBoard()
	board.Started(2, grid.Environment{Browser: "safari"})
	board.Started(0, grid.Environment{SessionName: "Pixel", Browser: "chrome"})
	board.Started(1, grid.Environment{SessionName: "Pixel", Browser: "firefox"})
	board.Finished(0, runner.Report{
		Environment: grid.Environment{SessionName: "Pixel", Browser: "chrome"},
		Status:      grid.Failed(grid.ReasonNoData),
	})
	board.Started(3, grid.Environment{Browser: "edge"})

	snap := board.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, []string{"Pixel", "Pixel", "unknown", "unknown"},
		[]string{snap[0].Session, snap[1].Session, snap[2].Session, snap[3].Session})
	assert.Equal(t, "failed", snap[0].State)
	assert.Equal(t, "firefox", snap[1].Browser)
	assert.Equal(t, "running", snap[1].State)
	assert.Equal(t, "safari", snap[2].Browser)
	assert.Equal(t, "edge", snap[3].Browser)
}

// TestRecoverMiddleware ensures handler panics become 500 responses.
func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	s := &Server{logger: zap.NewNop()}
	h := s.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// TestListenAndServeStopsOnCancel ensures the listener shuts down with its context.
func TestListenAndServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(nil, nil).ListenAndServe(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
