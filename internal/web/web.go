package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sunbar/internal/bar"
	"sunbar/internal/config"
	"sunbar/internal/ephemeris"
	"sunbar/internal/ics"
	appLog "sunbar/internal/log"
	"sunbar/internal/model"
	"sunbar/internal/window"
)

const (
	defaultDays     = 7
	shutdownTimeout = 5 * time.Second
)

// Server exposes the bar, the active window and upcoming solar events over
// HTTP, e.g. for a status bar that polls instead of spawning a process.
type Server struct {
	cfg      *config.Config
	log      *appLog.Logger
	mux      *http.ServeMux
	loc      *time.Location
	provider ephemeris.Provider
	resolver *window.Resolver
	renderer *bar.Renderer

	// now is swapped in tests.
	now func() time.Time
}

// NewServer constructs a new Server. loc is the zone calendar days are
// taken in.
func NewServer(cfg *config.Config, p ephemeris.Provider, loc *time.Location, logger *appLog.Logger) *Server {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		cfg:      cfg,
		log:      logger,
		mux:      http.NewServeMux(),
		loc:      loc,
		provider: p,
		resolver: window.NewResolver(p, logger),
		renderer: bar.NewRenderer(cfg.Length, logger),
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		s.log.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password leaves auth disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
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
			w.Header().Set("WWW-Authenticate", `Basic realm="sunbar", charset="UTF-8"`)
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

// StartServer serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func StartServer(ctx context.Context, cfg *config.Config, p ephemeris.Provider, loc *time.Location, logger *appLog.Logger) error {
	s := NewServer(cfg, p, loc, logger)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/bar", s.handleBar)
	s.mux.HandleFunc("/api/window", s.handleWindow)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/calendar.ics", s.handleCalendar)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleBar returns the two bar rows as plain text, ready to be printed by
// a status line.
func (s *Server) handleBar(w http.ResponseWriter, _ *http.Request) {
	_, b, err := s.render()
	if err != nil {
		s.writeFailure(w, "api bar", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String() + "\n"))
}

// windowResponse is the JSON response shape for /api/window.
type windowResponse struct {
	Start           time.Time `json:"start"`
	Sunset          time.Time `json:"sunset"`
	End             time.Time `json:"end"`
	Now             time.Time `json:"now"`
	ElapsedFraction float64   `json:"elapsed_fraction"`
	SunsetFraction  float64   `json:"sunset_fraction"`
	Progress        string    `json:"progress"`
	Marker          string    `json:"marker"`
}

func (s *Server) handleWindow(w http.ResponseWriter, _ *http.Request) {
	win, b, err := s.render()
	if err != nil {
		s.writeFailure(w, "api window", err)
		return
	}
	writeJSON(w, http.StatusOK, windowResponse{
		Start:           win.Start,
		Sunset:          win.SunsetMark,
		End:             win.End,
		Now:             win.Now,
		ElapsedFraction: win.ElapsedFraction(),
		SunsetFraction:  win.SunsetFraction(),
		Progress:        b.Progress,
		Marker:          b.Marker,
	})
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Observer        model.Observer `json:"observer"`
	DisplayTimeZone string         `json:"display_timezone"`
	Days            []ics.Day      `json:"days"`
}

// handleEvents returns solar events for upcoming days.
//
// GET /api/events?days=7
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	days := clampDays(parseIntDefault(r.URL.Query().Get("days"), defaultDays))
	now := s.now().In(s.loc)

	s.log.Info("api events request", "days", days, "timezone", s.loc.String())

	upcoming, err := ics.Upcoming(s.provider, s.cfg.Observer, now, days, s.log)
	if err != nil {
		s.writeFailure(w, "api events", err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Observer:        s.cfg.Observer,
		DisplayTimeZone: s.loc.String(),
		Days:            upcoming,
	})
}

// handleCalendar serves the iCalendar export.
//
// GET /calendar.ics?days=30
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	days := clampDays(parseIntDefault(r.URL.Query().Get("days"), s.cfg.ICSDays))
	now := s.now().In(s.loc)

	body, err := ics.Export(s.provider, s.cfg.Observer, now, days, s.log)
	if err != nil {
		s.writeFailure(w, "calendar export", err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) render() (model.Window, model.Bar, error) {
	now := s.now().In(s.loc)
	win, err := s.resolver.Resolve(s.cfg.Observer, now)
	if err != nil {
		return model.Window{}, model.Bar{}, err
	}
	b, err := s.renderer.Render(win)
	if err != nil {
		return model.Window{}, model.Bar{}, err
	}
	return win, b, nil
}

// writeFailure maps core error kinds onto HTTP status codes.
func (s *Server) writeFailure(w http.ResponseWriter, what string, err error) {
	s.log.Error(what+" failed", err)
	if errors.Is(err, model.ErrEphemerisUnavailable) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func clampDays(n int) int {
	if n <= 0 {
		return defaultDays
	}
	if n > ics.MaxDays {
		return ics.MaxDays
	}
	return n
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
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
