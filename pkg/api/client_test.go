package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/verkado/storefront-client/internal/testutil"
)

// newTestClient creates a client wired to a fresh mock store with matching
// credentials.
func newTestClient(t *testing.T) (*Client, *testutil.MockStore) {
	t.Helper()

	store := testutil.NewMockStore()
	t.Cleanup(store.Close)

	access, refresh := store.Tokens()
	session := NewSession(access, refresh)

	client, err := New(Config{
		BaseURL:   store.URL(),
		Session:   session,
		UserAgent: "storefront-client-test/0.0.0",
		Timeout:   5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	return client, store
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config",
			config: Config{
				BaseURL: "https://api.example-store.dev",
				Session: NewSession("a", "r"),
			},
			expectError: false,
		},
		{
			name: "missing base URL",
			config: Config{
				Session: NewSession("a", "r"),
			},
			expectError: true,
			errorMsg:    "base URL is required",
		},
		{
			name: "missing session",
			config: Config{
				BaseURL: "https://api.example-store.dev",
			},
			expectError: true,
			errorMsg:    "session is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client == nil {
				t.Fatal("Expected client but got nil")
			}
		})
	}
}

func TestGetJSON_Success(t *testing.T) {
	client, store := newTestClient(t)

	store.SetHandler("/products/p1", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteEnvelope(w, map[string]string{"id": "p1"}, nil)
	})

	var product struct {
		ID string `json:"id"`
	}
	if err := client.GetJSON(context.Background(), "products/p1", nil, &product); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if product.ID != "p1" {
		t.Errorf("ID = %q, want %q", product.ID, "p1")
	}

	access, _ := store.Tokens()
	if store.LastAuthHeader != "Bearer "+access {
		t.Errorf("Authorization = %q, want bearer %q", store.LastAuthHeader, access)
	}
}

func TestGetJSON_EmptyBody(t *testing.T) {
	client, store := newTestClient(t)

	store.SetHandler("/cart/clear", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var out map[string]string
	if err := client.GetJSON(context.Background(), "cart/clear", nil, &out); err != nil {
		t.Fatalf("Empty body must not be an error, got: %v", err)
	}
	if out != nil {
		t.Errorf("Expected untouched output, got %v", out)
	}
}

func TestGetJSON_ServerErrorEnvelope(t *testing.T) {
	client, store := newTestClient(t)

	store.SetHandler("/products", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteError(w, http.StatusConflict, "oversold", "variant out of stock")
	})

	err := client.GetJSON(context.Background(), "products", nil, nil)

	var srvErr *ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("Expected ServerError, got %T: %v", err, err)
	}
	if srvErr.Code != "oversold" || srvErr.StatusCode != http.StatusConflict {
		t.Errorf("Got %+v, want code=oversold status=409", srvErr)
	}
}

func TestGetJSON_NonJSONErrorBody(t *testing.T) {
	client, store := newTestClient(t)

	store.SetHandler("/products", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("<html>down for maintenance</html>"))
	})

	err := client.GetJSON(context.Background(), "products", nil, nil)

	var srvErr *ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("Expected ServerError, got %T: %v", err, err)
	}
	if srvErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", srvErr.StatusCode)
	}
}

func TestGetJSON_NonJSONSuccessBody(t *testing.T) {
	client, store := newTestClient(t)

	store.SetHandler("/products", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("not json at all"))
	})

	err := client.GetJSON(context.Background(), "products", nil, nil)

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected ParseError, got %T: %v", err, err)
	}
}

func TestGetJSON_NetworkError(t *testing.T) {
	store := testutil.NewMockStore()
	access, refresh := store.Tokens()
	store.Close() // nothing listening anymore

	client, err := New(Config{
		BaseURL: store.URL(),
		Session: NewSession(access, refresh),
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	err = client.GetJSON(context.Background(), "products", nil, nil)

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected NetworkError, got %T: %v", err, err)
	}
}

func TestRefreshAndReplay_Transparent(t *testing.T) {
	client, store := newTestClient(t)

	store.SetHandler("/products/p1", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteEnvelope(w, map[string]string{"id": "p1"}, nil)
	})

	// Invalidate the client's access token server-side. The next request
	// must refresh once, replay once, and succeed with no error visible.
	store.ExpireAccess()

	var product struct {
		ID string `json:"id"`
	}
	if err := client.GetJSON(context.Background(), "products/p1", nil, &product); err != nil {
		t.Fatalf("Expected transparent refresh-and-replay, got error: %v", err)
	}
	if product.ID != "p1" {
		t.Errorf("ID = %q, want %q", product.ID, "p1")
	}

	if store.GetRefreshCount() != 1 {
		t.Errorf("RefreshCount = %d, want 1", store.GetRefreshCount())
	}

	// The session must now hold the rotated pair.
	wantAccess, wantRefresh := store.Tokens()
	gotAccess, gotRefresh := client.Session().Tokens()
	if gotAccess != wantAccess || gotRefresh != wantRefresh {
		t.Errorf("Session tokens = (%q, %q), want (%q, %q)",
			gotAccess, gotRefresh, wantAccess, wantRefresh)
	}
}

func TestRefreshFailure_SurfacesUnauthorized(t *testing.T) {
	store := testutil.NewMockStore()
	t.Cleanup(store.Close)

	// Wrong refresh token: the refresh attempt itself will be rejected.
	access, _ := store.Tokens()
	client, err := New(Config{
		BaseURL: store.URL(),
		Session: NewSession(access, "bogus-refresh"),
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	store.ExpireAccess()

	err = client.GetJSON(context.Background(), "products", nil, nil)

	var authErr *UnauthorizedError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected UnauthorizedError, got %T: %v", err, err)
	}
	if store.GetRefreshCount() != 1 {
		t.Errorf("RefreshCount = %d, want exactly 1 (no retry loop)", store.GetRefreshCount())
	}
}

// slowTransport delays every request so concurrent refresh attempts overlap
// deterministically.
type slowTransport struct {
	base  http.RoundTripper
	delay time.Duration
}

func (st *slowTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	time.Sleep(st.delay)
	return st.base.RoundTrip(req)
}

func TestConcurrentRefresh_SharedInFlight(t *testing.T) {
	client, store := newTestClient(t)

	client.SetHTTPClient(&http.Client{
		Transport: &slowTransport{base: http.DefaultTransport, delay: 100 * time.Millisecond},
		Timeout:   5 * time.Second,
	})

	store.ExpireAccess()

	// First caller starts the refresh; the rest must wait on the same
	// in-flight call instead of spending the refresh token again.
	var wg sync.WaitGroup
	errs := make([]error, 5)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = client.refreshSession(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)

	for i := 1; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.refreshSession(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("refreshSession[%d] = %v, want nil", i, err)
		}
	}
	if store.GetRefreshCount() != 1 {
		t.Errorf("RefreshCount = %d, want 1 shared refresh", store.GetRefreshCount())
	}
}

func TestRefreshRequest_NoBearerHeader(t *testing.T) {
	client, store := newTestClient(t)

	if err := client.refreshSession(context.Background()); err != nil {
		t.Fatalf("refreshSession failed: %v", err)
	}
	if store.LastAuthHeader != "" {
		t.Errorf("Refresh request carried Authorization %q, want none", store.LastAuthHeader)
	}
}

func TestSession_Tokens(t *testing.T) {
	s := NewSession("a1", "r1")

	access, refresh := s.Tokens()
	if access != "a1" || refresh != "r1" {
		t.Errorf("Tokens() = (%q, %q), want (a1, r1)", access, refresh)
	}

	s.SetTokens("a2", "r2")
	access, refresh = s.Tokens()
	if access != "a2" || refresh != "r2" {
		t.Errorf("Tokens() after SetTokens = (%q, %q), want (a2, r2)", access, refresh)
	}
}
