// Package testutil provides testing utilities for the webgrab client.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer is a configurable mock origin server for testing. Beyond
// per-path handlers it tracks request counts and the high-water mark of
// concurrently open requests, which limiter tests assert against.
type MockServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests map[string]int

	total       int
	inFlight    int
	maxInFlight int
}

// NewMockServer creates a new mock origin server.
func NewMockServer() *MockServer {
	mock := &MockServer{
		handlers: make(map[string]http.HandlerFunc),
		requests: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.total++
		mock.requests[r.URL.Path]++
		mock.inFlight++
		if mock.inFlight > mock.maxInFlight {
			mock.maxInFlight = mock.inFlight
		}
		handler := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		defer func() {
			mock.mu.Lock()
			mock.inFlight--
			mock.mu.Unlock()
		}()

		if handler != nil {
			handler(w, r)
			return
		}

		// Default 200 OK response
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>ok</body></html>"))
	}))

	return mock
}

// URL returns the mock server URL. The optional path is appended as-is.
func (m *MockServer) URL(path ...string) string {
	if len(path) > 0 {
		return m.server.URL + path[0]
	}
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = 0
	m.maxInFlight = 0
	m.requests = make(map[string]int)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockServer) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed status and body for a path.
func (m *MockServer) SetResponse(path string, status int, body string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if body != "" {
			w.Write([]byte(body))
		}
	})
}

// RequestCount returns the number of requests made to path.
func (m *MockServer) RequestCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[path]
}

// TotalRequests returns the number of requests made to the server.
func (m *MockServer) TotalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// MaxInFlight returns the highest number of simultaneously open
// requests observed since the last Reset.
func (m *MockServer) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// NewFlakyHandler returns a handler that fails with failStatus for the
// first failures requests, then answers 200 with body. Used to exercise
// the retry loop's success-after-retry path.
func NewFlakyHandler(failures int, failStatus int, body string) http.HandlerFunc {
	var mu sync.Mutex
	seen := 0

	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen++
		fail := seen <= failures
		mu.Unlock()

		if fail {
			w.WriteHeader(failStatus)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}
}

// NewSlowHandler returns a handler that sleeps for delay before
// answering status with body. Used to hold connections open for
// concurrency assertions and to trip client timeouts.
func NewSlowHandler(delay time.Duration, status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.WriteHeader(status)
		if body != "" {
			w.Write([]byte(body))
		}
	}
}
