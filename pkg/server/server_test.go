package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Sternrassler/item-feed/internal/testutil"
	"github.com/Sternrassler/item-feed/pkg/item"
)

func newTestServer(t *testing.T, backend *testutil.Backend) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxPageSize = 50
	s, err := New(backend, backend, cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s
}

func TestNew_Validation(t *testing.T) {
	backend := testutil.NewBackend(1)

	tests := []struct {
		name     string
		build    func() (*Server, error)
		errorMsg string
	}{
		{
			name:  "valid",
			build: func() (*Server, error) { return New(backend, backend, DefaultConfig()) },
		},
		{
			name:     "nil page provider",
			build:    func() (*Server, error) { return New(nil, backend, DefaultConfig()) },
			errorMsg: "page provider is required",
		},
		{
			name:     "nil detail provider",
			build:    func() (*Server, error) { return New(backend, nil, DefaultConfig()) },
			errorMsg: "detail provider is required",
		},
		{
			name: "zero max page size",
			build: func() (*Server, error) {
				cfg := DefaultConfig()
				cfg.MaxPageSize = 0
				return New(backend, backend, cfg)
			},
			errorMsg: "max page size must be > 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %v", tt.errorMsg, err)
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, testutil.NewBackend(0))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	body, _ := io.ReadAll(w.Result().Body)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestItemsEndpoint(t *testing.T) {
	s := newTestServer(t, testutil.NewBackend(25))

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
		wantFirst  string
	}{
		{name: "first page", query: "?offset=0&count=20", wantStatus: 200, wantCount: 20, wantFirst: "item-000"},
		{name: "short page", query: "?offset=20&count=10", wantStatus: 200, wantCount: 5, wantFirst: "item-020"},
		{name: "past end", query: "?offset=40&count=10", wantStatus: 200, wantCount: 0},
		{name: "count capped", query: "?offset=0&count=500", wantStatus: 200, wantCount: 25, wantFirst: "item-000"},
		{name: "default count", query: "", wantStatus: 200, wantCount: 20, wantFirst: "item-000"},
		{name: "negative offset", query: "?offset=-1", wantStatus: 400},
		{name: "bad count", query: "?count=abc", wantStatus: 400},
		{name: "zero count", query: "?count=0", wantStatus: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/items"+tt.query, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var page item.Page
			if err := json.NewDecoder(w.Body).Decode(&page); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(page.Items) != tt.wantCount {
				t.Errorf("items = %d, want %d", len(page.Items), tt.wantCount)
			}
			if page.Items == nil {
				t.Error("items must encode as an array, got null")
			}
			if tt.wantFirst != "" && page.Items[0].ID != tt.wantFirst {
				t.Errorf("first id = %s, want %s", page.Items[0].ID, tt.wantFirst)
			}
		})
	}
}

func TestItemsEndpoint_ProviderError(t *testing.T) {
	backend := testutil.NewBackend(10)
	backend.PageErrors[0] = errors.New("database down")
	s := newTestServer(t, backend)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/items?offset=0&count=10", nil))

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if strings.Contains(w.Body.String(), "database down") {
		t.Error("provider error text must not leak to clients")
	}
}

func TestDetailEndpoint(t *testing.T) {
	backend := testutil.NewBackend(3)
	delete(backend.Details, testutil.ItemID(1))
	backend.DetailErrors[testutil.ItemID(2)] = errors.New("timeout")
	s := newTestServer(t, backend)

	tests := []struct {
		name       string
		id         string
		wantStatus int
		wantText   string
	}{
		{name: "found", id: testutil.ItemID(0), wantStatus: 200, wantText: "Detail 0"},
		{name: "not found", id: testutil.ItemID(1), wantStatus: 404},
		{name: "provider error", id: testutil.ItemID(2), wantStatus: 502},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/items/"+tt.id+"/detail", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var detail item.Detail
			if err := json.NewDecoder(w.Body).Decode(&detail); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if detail.ItemID != tt.id || detail.Text != tt.wantText {
				t.Errorf("detail = %+v, want {%s %s}", detail, tt.id, tt.wantText)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testutil.NewBackend(5))

	// Serve one request so the route counters exist.
	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/items", nil))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "# HELP") || !strings.Contains(body, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	if !strings.Contains(body, "itemfeed_http_requests_total") {
		t.Error("Expected metrics output to contain itemfeed_http_requests_total")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, testutil.NewBackend(1))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/items", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}
