package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// authStub is a minimal token endpoint plus one protected resource. It
// rotates the refresh token on every refresh call and counts any
// presentation of a stale refresh token as reuse. Access tokens stay
// valid until expired explicitly, so retries with a freshly minted
// token always land.
type authStub struct {
	mu           sync.Mutex
	accessValid  map[string]bool
	validRefresh string
	accessSeq    int
	refreshCalls int32
	reuseCalls   int32
	failRefresh  bool
}

func newAuthStub() *authStub {
	return &authStub{
		accessValid:  map[string]bool{"access-1": true},
		validRefresh: "refresh-1",
		accessSeq:    1,
	}
}

func (s *authStub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.refreshCalls, 1)

		var req struct {
			Refresh string `json:"refresh"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.failRefresh || req.Refresh != s.validRefresh {
			if !s.failRefresh {
				atomic.AddInt32(&s.reuseCalls, 1)
			}
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "token_reused"})
			return
		}

		s.accessSeq++
		access := fmt.Sprintf("access-%d", s.accessSeq)
		s.accessValid[access] = true
		s.validRefresh = fmt.Sprintf("refresh-%d", s.accessSeq)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access":  access,
			"refresh": s.validRefresh,
		})
	})

	mux.HandleFunc("GET /api/v1/protected", func(w http.ResponseWriter, r *http.Request) {
		var token string
		fmt.Sscanf(r.Header.Get("Authorization"), "Bearer %s", &token)

		s.mu.Lock()
		ok := token != "" && s.accessValid[token]
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "token_expired"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	return mux
}

func (s *authStub) expireAccess(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessValid[token] = false
}

func TestRefreshOnceAndRetry(t *testing.T) {
	stub := newAuthStub()
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	store := NewMemoryStore()
	store.Set("access-1", "refresh-1")
	c := New(server.URL, store)

	// Invalidate the access token server-side; the next call must
	// transparently refresh and retry.
	stub.expireAccess("access-1")

	var out map[string]string
	if err := c.Do(context.Background(), http.MethodGet, "/api/v1/protected", nil, &out); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if out["status"] != "ok" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if n := atomic.LoadInt32(&stub.refreshCalls); n != 1 {
		t.Fatalf("expected exactly one refresh, got %d", n)
	}

	access, refresh := store.Tokens()
	if access == "access-1" || refresh == "refresh-1" {
		t.Fatalf("store should hold the rotated pair, has %q/%q", access, refresh)
	}
}

func TestConcurrent401sNeverReuseRefreshToken(t *testing.T) {
	stub := newAuthStub()
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	store := NewMemoryStore()
	store.Set("access-1", "refresh-1")
	c := New(server.URL, store)

	stub.expireAccess("access-1")

	const requests = 16
	var wg sync.WaitGroup
	errs := make([]error, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Do(context.Background(), http.MethodGet, "/api/v1/protected", nil, nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	// Rotation means a refresh token is single-use; the singleflight
	// gate must prevent the client from ever presenting one twice.
	if n := atomic.LoadInt32(&stub.reuseCalls); n != 0 {
		t.Fatalf("client presented a stale refresh token %d times", n)
	}
}

func TestRefreshFailureClearsSession(t *testing.T) {
	stub := newAuthStub()
	stub.failRefresh = true
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	store := NewMemoryStore()
	store.Set("stale-access", "stale-refresh")
	c := New(server.URL, store)

	err := c.Do(context.Background(), http.MethodGet, "/api/v1/protected", nil, nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	access, refresh := store.Tokens()
	if access != "" || refresh != "" {
		t.Fatalf("store should be cleared, has %q/%q", access, refresh)
	}
}

func TestAnonymousRequestSkipsRefresh(t *testing.T) {
	stub := newAuthStub()
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	c := New(server.URL, NewMemoryStore())

	err := c.Do(context.Background(), http.MethodGet, "/api/v1/protected", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected a plain 401, got %v", err)
	}
	if n := atomic.LoadInt32(&stub.refreshCalls); n != 0 {
		t.Fatalf("anonymous client should never refresh, did %d times", n)
	}
}
