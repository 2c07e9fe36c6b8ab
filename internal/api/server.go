package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marti95432/discordbot/internal/logbuf"
	"github.com/marti95432/discordbot/internal/ticket"
	"github.com/marti95432/discordbot/pkg/protocol"
)

// LogQuerier abstracts log entry querying to avoid coupling to logbuf directly.
type LogQuerier interface {
	Query(f logbuf.Filter) []logbuf.Entry
}

// Gateway reports the platform connection state.
type Gateway interface {
	Connected() bool
}

// SessionCounter reports live flow sessions.
type SessionCounter interface {
	ActiveSessions() int
}

// Deps are the read-only views the API exposes. Any of them may be nil.
type Deps struct {
	Gateway  Gateway
	Tickets  ticket.Store
	Sessions SessionCounter
	Logs     LogQuerier
}

// Config holds API server configuration.
type Config struct {
	Host string
	Port int
	Key  string // API key for Bearer auth
}

// Server is the ticket bot's admin REST API.
type Server struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
	srv    *http.Server
}

// NewServer creates a new API server.
func NewServer(deps Deps, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With("component", "api"),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.Get("/api/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/api/tickets", s.handleListTickets)
		r.Get("/api/tickets/{id}", s.handleGetTicket)
		r.Get("/api/sessions", s.handleSessions)
		r.Get("/api/logs", s.handleGetLogs)
	})

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Key == "" {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.cfg.Key {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	gateway := "disconnected"
	if s.deps.Gateway != nil && s.deps.Gateway.Connected() {
		gateway = "connected"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "gateway": gateway})
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tickets == nil {
		writeJSON(w, http.StatusOK, []*protocol.Ticket{})
		return
	}

	q := r.URL.Query()
	filter := ticket.Filter{}
	if status := q.Get("status"); status != "" {
		ts := protocol.TicketStatus(status)
		if ts != protocol.TicketOpen && ts != protocol.TicketClosed {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be open or closed"})
			return
		}
		filter.Status = &ts
	}
	filter.OpenerID = q.Get("opener")
	filter.Path = q.Get("path")
	if limitStr := q.Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = n
		}
	}

	tickets, err := s.deps.Tickets.List(filter)
	if err != nil {
		s.logger.Error("list tickets failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if tickets == nil {
		tickets = []*protocol.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tickets == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ticket not found"})
		return
	}
	t, err := s.deps.Tickets.Get(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ticket.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ticket not found"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, t)
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	active := 0
	if s.deps.Sessions != nil {
		active = s.deps.Sessions.ActiveSessions()
	}
	writeJSON(w, http.StatusOK, map[string]int{"active": active})
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	q := r.URL.Query()
	f := logbuf.Filter{
		MinLevel:  slog.LevelDebug,
		Component: q.Get("component"),
		Request:   q.Get("request"),
		Limit:     200,
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			f.Limit = n
		}
	}
	if lvl := q.Get("level"); lvl != "" {
		f.MinLevel = logbuf.ParseLevel(lvl)
	}
	if since := q.Get("since"); since != "" {
		if ms, err := strconv.ParseInt(since, 10, 64); err == nil {
			f.Since = time.UnixMilli(ms)
		} else if t, err := time.Parse(time.RFC3339, since); err == nil {
			f.Since = t
		}
	}

	entries := s.deps.Logs.Query(f)
	if entries == nil {
		entries = []logbuf.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
