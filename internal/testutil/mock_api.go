package testutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/item-feed/pkg/fetch"
	"github.com/Sternrassler/item-feed/pkg/item"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable items API server backed by a Backend.
type MockAPI struct {
	server   *httptest.Server
	backend  *Backend
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount    int
	lastRequestHead http.Header
}

// NewMockAPI starts a mock items API serving backend.
func NewMockAPI(backend *Backend) *MockAPI {
	mock := &MockAPI{
		backend:  backend,
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.lastRequestHead = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the number of requests served.
func (m *MockAPI) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockAPI) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHead
}

func (m *MockAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/items":
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		items, err := m.backend.Page(r.Context(), offset, count)
		if err != nil {
			writeMockJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeMockJSON(w, http.StatusOK, item.Page{Offset: offset, Count: count, Items: items})

	case strings.HasPrefix(r.URL.Path, "/items/") && strings.HasSuffix(r.URL.Path, "/detail"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/items/"), "/detail")
		text, err := m.backend.Detail(r.Context(), id)
		if errors.Is(err, fetch.ErrDetailNotFound) {
			writeMockJSON(w, http.StatusNotFound, map[string]string{"error": "detail not found"})
			return
		}
		if err != nil {
			writeMockJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeMockJSON(w, http.StatusOK, item.Detail{ItemID: id, Text: text})

	default:
		http.NotFound(w, r)
	}
}

func writeMockJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewMalformedResponse creates a 200 response with an undecodable body.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"items": [`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}
