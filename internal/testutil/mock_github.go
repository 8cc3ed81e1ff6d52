// Package testutil provides testing utilities for the GitHub client.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// MockResponse defines the behavior for one mock page response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// Repo is the subset of a GitHub repository object served by the mock.
// A nil Size is encoded as JSON null.
type Repo struct {
	FullName string `json:"full_name"`
	Size     *int64 `json:"size"`
}

// MockGitHub is a configurable mock GitHub API server for testing. Each
// collection path serves a list of pages by the page query parameter;
// pages past the end of the list are empty arrays.
type MockGitHub struct {
	server *httptest.Server
	mu     sync.RWMutex
	pages  map[string][]MockResponse

	// Tracking
	RequestCount      int
	RequestedPages    []int
	LastRequestHeader http.Header
	LastQuery         map[string]string
}

// NewMockGitHub creates a new mock GitHub server.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		pages: make(map[string][]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
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
	m.RequestedPages = nil
	m.LastRequestHeader = nil
	m.LastQuery = nil
}

// SetPages configures the responses for path, page 1 first.
func (m *MockGitHub) SetPages(path string, pages ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[path] = pages
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockGitHub) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetRequestedPages returns the page numbers requested, in order.
func (m *MockGitHub) GetRequestedPages() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.RequestedPages...)
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockGitHub) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

func (m *MockGitHub) handle(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	m.mu.Lock()
	m.RequestCount++
	m.RequestedPages = append(m.RequestedPages, page)
	m.LastRequestHeader = r.Header.Clone()
	m.LastQuery = map[string]string{}
	for key := range r.URL.Query() {
		m.LastQuery[key] = r.URL.Query().Get(key)
	}
	pages, exists := m.pages[r.URL.Path]
	m.mu.Unlock()

	if !exists {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
		return
	}

	resp := NewPageResponse()
	if page <= len(pages) {
		resp = pages[page-1]
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// Size returns a pointer to kb for use in Repo literals.
func Size(kb int64) *int64 {
	return &kb
}

// NewPageResponse creates a 200 OK page holding repos, with healthy rate
// limit headers. No repos yields the empty array that ends a collection.
func NewPageResponse(repos ...Repo) MockResponse {
	if repos == nil {
		repos = []Repo{}
	}
	body, err := json.Marshal(repos)
	if err != nil {
		panic(err)
	}

	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type":          "application/json; charset=utf-8",
			"X-RateLimit-Limit":     "5000",
			"X-RateLimit-Remaining": "4999",
			"X-RateLimit-Reset":     "1792411200",
			"X-RateLimit-Resource":  "core",
		},
	}
}

// NewRateLimitResponse creates a 403 response with an exhausted rate limit.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message":"API rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type":          "application/json; charset=utf-8",
			"X-RateLimit-Limit":     "60",
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     "1792411200",
			"X-RateLimit-Resource":  "core",
		},
	}
}

// NewUnauthorizedResponse creates a 401 Bad credentials response.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"message":"Bad credentials","documentation_url":"https://docs.github.com/rest"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 502 Bad Gateway response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadGateway,
		Body:       `{"message":"Server Error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
