package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func fakeDaemon(t *testing.T, key string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"ok","gateway":"connected"}`))
	})
	mux.HandleFunc("GET /api/tickets", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+key {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		if r.URL.Query().Get("status") != "open" || r.URL.Query().Get("limit") != "5" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"channel_id":"2001","name":"ticket-alice","opener_id":"111","path":"other","status":"open","opened_at":"2025-06-01T10:00:00Z"}]`))
	})
	mux.HandleFunc("GET /api/tickets/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "2001" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"ticket not found"}`))
			return
		}
		w.Write([]byte(`{"channel_id":"2001","status":"closed"}`))
	})
	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"active":2}`))
	})
	mux.HandleFunc("GET /api/logs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("component") != "archive" {
			t.Errorf("component = %q", r.URL.Query().Get("component"))
		}
		w.Write([]byte(`[{"time":"2025-06-01T10:00:00Z","level":"ERROR","component":"archive","message":"step failed","attrs":{"step":"deliver"}}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealth(t *testing.T) {
	srv := fakeDaemon(t, "")
	out, err := run(t, "--api-url", srv.URL, "health")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "gateway: connected") {
		t.Errorf("output = %q", out)
	}
}

func TestTicketsList(t *testing.T) {
	srv := fakeDaemon(t, "k")
	out, err := run(t, "--api-url", srv.URL, "--api-key", "k", "tickets", "list", "--status", "open", "--limit", "5")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2001") || !strings.Contains(out, "ticket-alice") {
		t.Errorf("output = %q", out)
	}
}

func TestTicketsList_Unauthorized(t *testing.T) {
	srv := fakeDaemon(t, "k")
	_, err := run(t, "--api-url", srv.URL, "tickets", "list", "--status", "open", "--limit", "5")
	if err == nil || !strings.Contains(err.Error(), "HTTP 401") {
		t.Errorf("err = %v, want HTTP 401", err)
	}
}

func TestTicketsShow(t *testing.T) {
	srv := fakeDaemon(t, "")
	out, err := run(t, "--api-url", srv.URL, "tickets", "show", "2001")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"status": "closed"`) {
		t.Errorf("output = %q", out)
	}

	if _, err := run(t, "--api-url", srv.URL, "tickets", "show", "nope"); err == nil {
		t.Error("expected error for unknown ticket")
	}
}

func TestSessions(t *testing.T) {
	srv := fakeDaemon(t, "")
	out, err := run(t, "--api-url", srv.URL, "sessions")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "active sessions: 2" {
		t.Errorf("output = %q", out)
	}
}

func TestLogs(t *testing.T) {
	srv := fakeDaemon(t, "")
	out, err := run(t, "--api-url", srv.URL, "logs", "--component", "archive")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "step failed") || !strings.Contains(out, `"step":"deliver"`) {
		t.Errorf("output = %q", out)
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	os.WriteFile(good, []byte(`discord:
  token: super-secret
  guild_id: "900"
tickets:
  support_role_id: "777"
  log_channel_id: "555"
`), 0o644)

	out, err := run(t, "config", "validate", good)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "config is valid") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "super-secret") {
		t.Error("token must be masked")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("discord:\n  guild_id: not-a-number\n"), 0o644)
	_, err = run(t, "config", "validate", bad)
	if err == nil || !strings.Contains(err.Error(), "DISCORD_TOKEN") {
		t.Errorf("err = %v", err)
	}
}
