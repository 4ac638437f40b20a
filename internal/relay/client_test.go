package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPostClassification(t *testing.T) {
	t.Parallel()
	cases := []struct {
		code int
		want Status
	}{
		{http.StatusOK, StatusSuccess},
		{http.StatusUnauthorized, StatusAuthFailed},
		{http.StatusInternalServerError, StatusFailed},
		{http.StatusCreated, StatusFailed},
	}
	for _, tc := range cases {
		var gotAuth, gotUA, gotCT string
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotUA = r.Header.Get("User-Agent")
			gotCT = r.Header.Get("Content-Type")
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(tc.code)
		}))

		snap := Snapshot{APIKey: "secret", Enabled: true, APIURL: srv.URL, UserAgent: "EDSpecRelay/EDSpec"}
		res := post(context.Background(), newHTTPClient(time.Second), snap, presence{Connected: true})
		srv.Close()

		if got := res.status(); got != tc.want {
			t.Fatalf("code %d: status=%q want %q", tc.code, got, tc.want)
		}
		if gotAuth != "Bearer secret" || gotUA != "EDSpecRelay/EDSpec" || gotCT != "application/json" {
			t.Fatalf("code %d: headers auth=%q ua=%q ct=%q", tc.code, gotAuth, gotUA, gotCT)
		}
		if gotBody["connected"] != true {
			t.Fatalf("code %d: body=%v", tc.code, gotBody)
		}
	}
}

func refusedURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return "http://" + addr
}

func TestPostConnectionRefused(t *testing.T) {
	t.Parallel()
	snap := Snapshot{APIKey: "k", Enabled: true, APIURL: refusedURL(t)}
	res := post(context.Background(), newHTTPClient(time.Second), snap, presence{Connected: true})
	if res.Err == nil {
		t.Fatalf("expected transport error")
	}
	if got := res.status(); got != StatusFailed {
		t.Fatalf("status=%q want failed", got)
	}
	if msg := describeTestResult(res); msg != "Connection refused - server may be down" {
		t.Fatalf("message=%q", msg)
	}
}

func TestDescribeTestResult(t *testing.T) {
	t.Parallel()
	long := errors.New(strings.Repeat("x", 100))
	cases := []struct {
		res  result
		want string
	}{
		{result{Code: 200}, "Connection successful!"},
		{result{Code: 401}, "Authentication failed - check your API key"},
		{result{Code: 503}, "Unexpected response: 503"},
		{result{Err: &net.DNSError{Err: "no such host", Name: "edspecbot.invalid"}}, "Failed to connect - check if the server is running"},
		{result{Err: long}, "Error: " + strings.Repeat("x", 60)},
	}
	for _, tc := range cases {
		if got := describeTestResult(tc.res); got != tc.want {
			t.Fatalf("describe(%+v)=%q want %q", tc.res, got, tc.want)
		}
	}
}
