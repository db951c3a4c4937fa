// Package network provides a pre-configured, shared HTTP client for server and auxiliary service communication.
package network

import (
	"net/http"
	"time"
)

// Client is the singleton HTTP client shared across the application.
// Progress reporting and skip-segment lookups are small, frequent requests,
// so the transport favors connection reuse over throughput.
var Client = &http.Client{
	Timeout:   30 * time.Second,
	Transport: newTransport(),
}

// newTransport initializes a tuned http.Transport with optimized pool and timeout parameters.
func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 50
	t.MaxIdleConnsPerHost = 50
	t.IdleConnTimeout = 90 * time.Second
	t.ResponseHeaderTimeout = 15 * time.Second
	return t
}
