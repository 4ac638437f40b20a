package statusz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"edspec/pkg/logx"
)

func TestHandlerStatusAndAuth(t *testing.T) {
	report := func(context.Context) (any, error) {
		return map[string]any{"status": "success", "queue_len": 2}, nil
	}
	s := New(Config{}, report, logx.Nop())
	h := s.Handler(Config{Token: "sekrit"})

	tests := []struct {
		name   string
		path   string
		auth   string
		status int
	}{
		{"healthz open", "/healthz", "", http.StatusOK},
		{"status no token", "/status", "", http.StatusUnauthorized},
		{"status bearer", "/status", "Bearer sekrit", http.StatusOK},
		{"status wrong bearer", "/status", "Bearer nope", http.StatusUnauthorized},
		{"status query token", "/status?token=sekrit", "", http.StatusOK},
		{"status bad query token", "/status?token=x", "Bearer sekrit", http.StatusUnauthorized},
		{"pprof off", "/debug/pprof/", "Bearer sekrit", http.StatusNotFound},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.auth != "" {
			req.Header.Set("Authorization", tc.auth)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: code=%d want %d", tc.name, rec.Code, tc.status)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc["status"] != "success" || doc["queue_len"] != float64(2) {
		t.Fatalf("doc=%v", doc)
	}
}

func TestHandlerReportError(t *testing.T) {
	s := New(Config{}, func(context.Context) (any, error) { return nil, errors.New("boom") }, logx.Nop())
	rec := httptest.NewRecorder()
	s.Handler(Config{Pprof: true}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code=%d", rec.Code)
	}
	rec = httptest.NewRecorder()
	s.Handler(Config{Pprof: true}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("pprof code=%d", rec.Code)
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:7461": true,
		"localhost:1":    true,
		"[::1]:80":       true,
		":7461":          false,
		"0.0.0.0:7461":   false,
		"10.0.0.5:80":    false,
		"garbage":        false,
	}
	for addr, want := range cases {
		if got := isLoopbackAddr(addr); got != want {
			t.Fatalf("%s: got %v want %v", addr, got, want)
		}
	}
}

func waitAddr(t *testing.T, s *Service) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a := s.Addr(); a != "" {
			return a
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server never bound")
	return ""
}

func TestReconfigureStartStop(t *testing.T) {
	s := New(Config{}, func(context.Context) (any, error) { return "ok", nil }, logx.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.Reconfigure(ctx, Config{Enabled: true, Addr: "127.0.0.1:0"})
	addr := waitAddr(t, s)

	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("code=%d", resp.StatusCode)
	}

	s.Reconfigure(ctx, Config{Enabled: false})
	if a := s.Addr(); a != "" {
		t.Fatalf("still bound at %s", a)
	}
}

func TestRefusesInsecureBind(t *testing.T) {
	s := New(Config{Enabled: true, Addr: "0.0.0.0:0"}, nil, logx.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	if a := s.Addr(); a != "" {
		t.Fatalf("bound at %s", a)
	}
	s.Stop(ctx)
}
