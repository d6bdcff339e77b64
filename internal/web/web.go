package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ratskal/internal/calendar"
	"ratskal/internal/config"
	appLog "ratskal/internal/log"
	"ratskal/internal/source"
)

// Server serves the month calendar page, its JSON API, the iCalendar
// subscription feed and the latest PNG snapshot.
type Server struct {
	cfg *config.Config
	src source.Source
	loc *time.Location
	mux *http.ServeMux

	// now is replaced in tests.
	now func() time.Time

	// Per-month meeting cache; see Meetings.
	monthsMu sync.RWMutex
	months   map[calendar.Cursor]monthEntry
	group    singleflight.Group
}

// NewServer constructs a new Server reading meetings from src.
func NewServer(cfg *config.Config, src source.Source) *Server {
	s := &Server{
		cfg:    cfg,
		src:    src,
		loc:    cfg.Location(),
		mux:    http.NewServeMux(),
		now:    time.Now,
		months: make(map[calendar.Cursor]monthEntry),
	}
	s.registerRoutes()
	return s
}

// Location is the municipal zone all days are computed in.
func (s *Server) Location() *time.Location {
	return s.loc
}

// Now is the server's clock.
func (s *Server) Now() time.Time {
	return s.now()
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Ratskal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server",
			"listen", "http://"+s.cfg.Listen,
			"basic_auth", s.basicAuthEnabled(),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("stopping HTTP server")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /kalender", s.handleKalender)
	s.mux.HandleFunc("GET /api/calendar", s.handleCalendarAPI)
	s.mux.HandleFunc("GET /api/agenda", s.handleAgendaAPI)
	s.mux.HandleFunc("GET /export/calendar.ics", s.handleFeed)
	s.mux.HandleFunc("GET /api/meetings/feed.ics", s.handleFeed)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/kalender", http.StatusFound)
}

// handlePreview serves the last snapshot written by the capture job.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	// http.ServeFile answers 404 when no snapshot has been taken yet.
	http.ServeFile(w, r, s.cfg.Snapshot.Path)
}

// cursorParam reads ?month=YYYY-MM, defaulting to the current month.
func (s *Server) cursorParam(r *http.Request) (calendar.Cursor, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return calendar.Today(s.now(), s.loc), nil
	}
	return calendar.ParseCursor(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
