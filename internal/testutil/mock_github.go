// Package testutil provides testing utilities for the extractor.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockGitHub is a configurable mock GitHub API server for testing. It serves
// the list endpoint from a scripted repository table and the detail endpoint
// per repository, and tracks request counts so tests can assert how many
// calls a run actually issued.
type MockGitHub struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	repos    []MockRepo

	// Tracking
	RequestCount      int
	ListRequestCount  int
	LastRequestHeader http.Header
	ListSinceValues   []int64
}

// MockRepo is one scripted repository served by the mock.
type MockRepo struct {
	ID       int64
	Name     string
	Owner    string
	Language string
	Stars    int
	Deleted  bool
}

// NewMockGitHub creates a new mock server.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockGitHub) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ListRequestCount = 0
	m.LastRequestHeader = nil
	m.ListSinceValues = nil
}

// SetRepos scripts the repository table served by the list and detail
// endpoints.
func (m *MockGitHub) SetRepos(repos []MockRepo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repos = repos
}

// SetHandler sets a custom handler for a specific path.
func (m *MockGitHub) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockGitHub) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
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

// GetRequestCount returns the number of requests made to the server.
func (m *MockGitHub) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetListSinceValues returns the since parameters seen by the list endpoint.
func (m *MockGitHub) GetListSinceValues() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int64(nil), m.ListSinceValues...)
}

// defaultHandler serves the scripted repository table with healthy
// rate-limit headers.
func (m *MockGitHub) defaultHandler(w http.ResponseWriter, r *http.Request) {
	setHealthyHeaders(w.Header())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.URL.Path == "/repositories" {
		m.serveList(w, r)
		return
	}

	m.serveDetail(w, r)
}

// serveList returns repositories with identifiers strictly greater than
// since, ascending, capped at per_page.
func (m *MockGitHub) serveList(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage <= 0 {
		perPage = 100
	}

	m.mu.Lock()
	m.ListRequestCount++
	m.ListSinceValues = append(m.ListSinceValues, since)
	repos := m.repos
	m.mu.Unlock()

	var page []map[string]any
	for _, repo := range repos {
		if repo.ID <= since {
			continue
		}
		page = append(page, map[string]any{
			"id":        repo.ID,
			"name":      repo.Name,
			"full_name": repo.Owner + "/" + repo.Name,
			"owner":     map[string]any{"login": repo.Owner},
			"html_url":  fmt.Sprintf("https://github.com/%s/%s", repo.Owner, repo.Name),
		})
		if len(page) >= perPage {
			break
		}
	}
	if page == nil {
		page = []map[string]any{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(page)
}

// serveDetail resolves /repos/{owner}/{name} against the scripted table.
func (m *MockGitHub) serveDetail(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	repos := m.repos
	m.mu.RUnlock()

	for _, repo := range repos {
		path := fmt.Sprintf("/repos/%s/%s", repo.Owner, repo.Name)
		if r.URL.Path != path {
			continue
		}
		if repo.Deleted {
			break
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"id":                repo.ID,
			"name":              repo.Name,
			"full_name":         repo.Owner + "/" + repo.Name,
			"owner":             map[string]any{"login": repo.Owner, "id": repo.ID * 10, "type": "User"},
			"html_url":          fmt.Sprintf("https://github.com/%s/%s", repo.Owner, repo.Name),
			"description":       "mock repository",
			"created_at":        "2020-01-01T00:00:00Z",
			"updated_at":        "2020-06-01T00:00:00Z",
			"pushed_at":         "2020-06-01T00:00:00Z",
			"size":              128,
			"stargazers_count":  repo.Stars,
			"watchers_count":    repo.Stars,
			"language":          repo.Language,
			"forks_count":       3,
			"open_issues_count": 1,
			"default_branch":    "main",
		})
		return
	}

	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"message": "Not Found"}`))
}

func setHealthyHeaders(h http.Header) {
	h.Set("X-RateLimit-Remaining", "4900")
	h.Set("X-RateLimit-Limit", "5000")
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
}

// NewHealthyResponse creates a standard 200 OK response with rate-limit
// headers.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "4900",
			"X-RateLimit-Limit":     "5000",
			"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 403 response for a spent quota window.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message": "API rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Limit":     "60",
			"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(30*time.Minute).Unix(), 10),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Server Error"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "4800",
			"X-RateLimit-Limit":     "5000",
			"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}
