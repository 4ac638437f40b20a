package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// newHTTPClient gives each worker its own client and connection pool.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConnsPerHost = 2
	return &http.Client{Timeout: timeout, Transport: tr}
}

type presence struct {
	Connected bool `json:"connected"`
	Test      bool `json:"test,omitempty"`
}

// result is the outcome of one POST.
type result struct {
	Code int
	Err  error
	Took time.Duration
}

func (r result) status() Status { return classify(r.Code, r.Err) }

func classify(code int, err error) Status {
	switch {
	case err != nil:
		return StatusFailed
	case code == http.StatusOK:
		return StatusSuccess
	case code == http.StatusUnauthorized:
		return StatusAuthFailed
	default:
		return StatusFailed
	}
}

// post sends body as JSON with bearer auth. The response body is drained
// and ignored.
func post(ctx context.Context, hc *http.Client, snap Snapshot, body any) result {
	start := time.Now()
	b, err := json.Marshal(body)
	if err != nil {
		return result{Err: fmt.Errorf("encode body: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, snap.APIURL, bytes.NewReader(b))
	if err != nil {
		return result{Err: err, Took: time.Since(start)}
	}
	req.Header.Set("Authorization", "Bearer "+snap.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", snap.UserAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return result{Err: err, Took: time.Since(start)}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
	return result{Code: resp.StatusCode, Took: time.Since(start)}
}

// describeTestResult renders a connection test outcome for humans.
func describeTestResult(r result) string {
	if r.Err != nil {
		var dnsErr *net.DNSError
		switch {
		case errors.As(r.Err, &dnsErr):
			return "Failed to connect - check if the server is running"
		case errors.Is(r.Err, syscall.ECONNREFUSED):
			return "Connection refused - server may be down"
		}
		msg := r.Err.Error()
		if len(msg) > 60 {
			msg = msg[:60]
		}
		return "Error: " + msg
	}
	switch r.Code {
	case http.StatusOK:
		return "Connection successful!"
	case http.StatusUnauthorized:
		return "Authentication failed - check your API key"
	default:
		return fmt.Sprintf("Unexpected response: %d", r.Code)
	}
}
