// Package testutil provides testing utilities for the storefront client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// MockStore is a configurable mock storefront API server for testing. It
// speaks the envelope protocol, validates bearer credentials on every
// endpoint except auth/refresh, and can expire the current access token on
// demand to exercise the refresh-and-replay path.
type MockStore struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	accessToken  string
	refreshToken string
	tokenSerial  int

	// Tracking
	RequestCount   int
	RefreshCount   int
	LastAuthHeader string
}

// NewMockStore creates a new mock storefront server with an initial
// credential pair ("access-1", "refresh-1").
func NewMockStore() *MockStore {
	mock := &MockStore{
		handlers:     make(map[string]func(w http.ResponseWriter, r *http.Request)),
		accessToken:  "access-1",
		refreshToken: "refresh-1",
		tokenSerial:  1,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastAuthHeader = r.Header.Get("Authorization")
		mock.mu.Unlock()

		if r.URL.Path == "/auth/refresh" {
			mock.handleRefresh(w, r)
			return
		}

		mock.mu.RLock()
		expected := "Bearer " + mock.accessToken
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if r.Header.Get("Authorization") != expected {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "access token expired or missing")
			return
		}

		if exists {
			handler(w, r)
			return
		}

		WriteError(w, http.StatusNotFound, "not_found", "no such endpoint")
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockStore) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockStore) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.RefreshCount = 0
	m.LastAuthHeader = ""
}

// Tokens returns the credential pair the server currently accepts.
func (m *MockStore) Tokens() (access, refresh string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken, m.refreshToken
}

// ExpireAccess rotates the server-side access token so the client's copy
// becomes stale. The next authenticated request fails with 401 until the
// client refreshes.
func (m *MockStore) ExpireAccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenSerial++
	m.accessToken = fmt.Sprintf("access-%d", m.tokenSerial)
}

// SetHandler sets a custom handler for a specific path. The handler runs
// only after bearer validation has passed.
func (m *MockStore) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetItems serves a paged list endpoint over the given items: `limit` and
// `page` query parameters select the slice, and next_page is advertised
// while more items remain.
func (m *MockStore) SetItems(path string, items []any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = len(items)
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page <= 0 {
			page = 1
		}

		start := (page - 1) * limit
		if start > len(items) {
			start = len(items)
		}
		end := start + limit
		if end > len(items) {
			end = len(items)
		}

		pagination := map[string]any{
			"total": len(items),
			"page":  page,
			"limit": limit,
		}
		if end < len(items) {
			pagination["next_page"] = page + 1
		}

		WriteEnvelope(w, items[start:end], pagination)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockStore) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetRefreshCount returns the number of refresh calls made to the server.
func (m *MockStore) GetRefreshCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RefreshCount
}

// handleRefresh implements POST /auth/refresh: a valid refresh token
// rotates the pair, an invalid one fails the envelope way.
func (m *MockStore) handleRefresh(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RefreshCount++

	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken != m.refreshToken {
		m.mu.Unlock()
		WriteError(w, http.StatusUnauthorized, "invalid_refresh_token", "refresh token is not valid")
		return
	}

	m.tokenSerial++
	m.accessToken = fmt.Sprintf("access-%d", m.tokenSerial)
	m.refreshToken = fmt.Sprintf("refresh-%d", m.tokenSerial)
	access, refresh := m.accessToken, m.refreshToken
	m.mu.Unlock()

	WriteEnvelope(w, map[string]string{
		"access_token":  access,
		"refresh_token": refresh,
	}, nil)
}

// WriteEnvelope writes a success envelope with optional pagination.
func WriteEnvelope(w http.ResponseWriter, data any, pagination any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	env := map[string]any{"data": data}
	if pagination != nil {
		env["pagination"] = pagination
	}
	_ = json.NewEncoder(w).Encode(env)
}

// WriteError writes a failure envelope with the given status and code.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
