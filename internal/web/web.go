package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"agendacal/internal/agenda"
	"agendacal/internal/broadcast"
	"agendacal/internal/calprop"
	"agendacal/internal/config"
	appLog "agendacal/internal/log"
	"agendacal/internal/refresh"
	"agendacal/internal/store"
)

// Refresher runs one ingest cycle on demand.
type Refresher interface {
	RunOnce(ctx context.Context) (refresh.Result, error)
}

// Server exposes the agenda over HTTP.
type Server struct {
	cfg       *config.Config
	agenda    *agenda.Agenda
	props     *calprop.Resolver
	store     *store.Store
	refresher Refresher
	loc       *time.Location
	router    *mux.Router

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// Deps are the collaborators a Server reads from.
type Deps struct {
	Agenda    *agenda.Agenda
	Props     *calprop.Resolver
	Store     *store.Store
	Refresher Refresher
	Location  *time.Location
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, deps Deps) *Server {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		cfg:       cfg,
		agenda:    deps.Agenda,
		props:     deps.Props,
		store:     deps.Store,
		refresher: deps.Refresher,
		loc:       loc,
		router:    mux.NewRouter(),
		Now:       time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
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
			w.Header().Set("WWW-Authenticate", `Basic realm="agendacal", charset="UTF-8"`)
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

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/broadcast", s.handleBroadcast).Methods(http.MethodGet)
	api.HandleFunc("/calendars", s.handleCalendars).Methods(http.MethodGet)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
}

func (s *Server) now() time.Time {
	return s.Now().In(s.loc)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleEvents returns the display-ready agenda.
//
// GET /api/events
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.agenda.View(s.store.Snapshot(), s.now()))
}

// handleBroadcast returns the CALENDAR_EVENTS envelope other modules
// receive, built from the current snapshot.
//
// GET /api/broadcast
func (s *Server) handleBroadcast(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	events := s.agenda.Build(s.store.Snapshot().Events, now)
	writeJSON(w, http.StatusOK, broadcast.NewEnvelope(s.agenda.Broadcast(events), now))
}

// calendarDTO is a calendar with its properties resolved.
type calendarDTO struct {
	Name            string   `json:"name,omitempty"`
	Color           string   `json:"color"`
	Symbols         []string `json:"symbols"`
	MaximumEntries  int      `json:"maximum_entries"`
	PastDaysCount   int      `json:"past_days_count"`
	Events          int      `json:"events"`
	HasRecurringSym bool     `json:"has_recurring_symbol"`
	HasFullDaySym   bool     `json:"has_full_day_symbol"`
}

// handleCalendars lists configured calendars with resolved properties.
// URLs are left out since they often carry access tokens.
//
// GET /api/calendars
func (s *Server) handleCalendars(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Snapshot()
	out := make([]calendarDTO, 0, len(s.cfg.Calendars))
	for _, c := range s.cfg.Calendars {
		out = append(out, calendarDTO{
			Name:            s.props.Name(c.URL),
			Color:           s.props.Color(c.URL),
			Symbols:         s.props.Symbols(c.URL, calprop.Symbol),
			MaximumEntries:  s.props.MaximumEntries(c.URL),
			PastDaysCount:   s.props.PastDaysCount(c.URL),
			Events:          len(snap.Events[c.URL]),
			HasRecurringSym: s.props.HasSymbols(c.URL, calprop.RecurringSymbol),
			HasFullDaySym:   s.props.HasSymbols(c.URL, calprop.FullDaySymbol),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type refreshResponse struct {
	refresh.Result
	Error string `json:"error,omitempty"`
}

// handleRefresh triggers an immediate ingest cycle.
//
// POST /api/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "refresh not available")
		return
	}

	res, err := s.refresher.RunOnce(r.Context())
	resp := refreshResponse{Result: res}
	status := http.StatusOK
	if err != nil {
		appLog.Error("api refresh failed", err, "updated", res.Updated)
		resp.Error = err.Error()
		if res.Updated == 0 {
			status = http.StatusBadGateway
		}
	}
	writeJSON(w, status, resp)
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
