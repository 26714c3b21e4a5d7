package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/gridscraper/internal/grid"
	"github.com/JakeFAU/gridscraper/internal/metrics"
	"github.com/JakeFAU/gridscraper/internal/runner"
)

// Server wires the probe, metrics, and session status handlers.
type Server struct {
	router chi.Router
	board  *Board
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(board *Board, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if board == nil {
		board = NewBoard()
	}
	metrics.Init()
	s := &Server{board: board, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/v1/sessions", s.listSessions)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.board.Snapshot()})
}

// SessionView is the JSON shape of one session on the Board.
type SessionView struct {
	Session  string   `json:"session"`
	Browser  string   `json:"browser"`
	State    string   `json:"state"`
	Reason   string   `json:"reason,omitempty"`
	Articles int      `json:"articles"`
	Titles   []string `json:"titles,omitempty"`
	Error    string   `json:"error,omitempty"`
	Duration string   `json:"duration,omitempty"`
}

// Board holds the latest known state of every session in a run, keyed by
// the environment's position so duplicate names stay distinct.
type Board struct {
	mu       sync.RWMutex
	sessions map[int]SessionView
}

// NewBoard returns an empty Board.
func NewBoard() *Board {
	return &Board{sessions: map[int]SessionView{}}
}

// Started marks a session as running.
func (b *Board) Started(index int, env grid.Environment) {
	b.set(index, SessionView{Session: env.Name(), Browser: env.Browser, State: "running"})
}

// Finished records the final report of a session.
func (b *Board) Finished(index int, rep runner.Report) {
	view := SessionView{
		Session:  rep.Environment.Name(),
		Browser:  rep.Environment.Browser,
		State:    string(rep.Status.State),
		Reason:   rep.Status.Reason,
		Articles: len(rep.Result),
		Titles:   rep.Result.Titles(),
		Duration: rep.Duration.String(),
	}
	if rep.Err != nil {
		view.Error = rep.Err.Error()
	}
	b.set(index, view)
}

// Snapshot returns the sessions in environment order.
func (b *Board) Snapshot() []SessionView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	indexes := make([]int, 0, len(b.sessions))
	for i := range b.sessions {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	out := make([]SessionView, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, b.sessions[i])
	}
	return out
}

func (b *Board) set(index int, view SessionView) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[index] = view
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		reqID, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.Debug("request completed",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.ObserveHTTPRequest(r.Method, route, ww.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
