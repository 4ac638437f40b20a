package client

import (
	"net/http"
	"time"
)

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConnsPerHost = 2
	return &http.Client{Timeout: timeout, Transport: tr}
}
