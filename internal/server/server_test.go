package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ugcmigrate/internal/api"
	"ugcmigrate/internal/auth"
)

func TestListenAddrRemoteGuard(t *testing.T) {
	t.Run("allows loopback", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("http://127.0.0.1:7433")
		if err != nil {
			t.Fatalf("expected loopback to be allowed, got error: %v", err)
		}
		if addr != "127.0.0.1:7433" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("blocks non-loopback by default", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		_, err := ListenAddr("http://0.0.0.0:7433")
		if err == nil {
			t.Fatal("expected error for non-loopback listen host")
		}
	})

	t.Run("allows non-loopback when explicitly enabled", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "true")
		addr, err := ListenAddr("http://0.0.0.0:7433")
		if err != nil {
			t.Fatalf("expected allow-remote to permit host, got error: %v", err)
		}
		if addr != "0.0.0.0:7433" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("requires url", func(t *testing.T) {
		if _, err := ListenAddr(""); err == nil {
			t.Fatal("expected error for empty api url")
		}
	})
}

func TestWithAdmin(t *testing.T) {
	const token = "admin-token-0123456789"
	hash, err := auth.HashToken(token)
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}

	run := func(srv *Server, header string) (*httptest.ResponseRecorder, bool) {
		nextCalled := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nextCalled = true
			w.WriteHeader(http.StatusNoContent)
		})
		req := httptest.NewRequest(http.MethodPost, "/v1/admin/gc", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		srv.withAdmin(next).ServeHTTP(w, req)
		return w, nextCalled
	}

	t.Run("denies when no hash is configured", func(t *testing.T) {
		w, called := run(&Server{}, "Bearer "+token)
		if w.Code != http.StatusForbidden || called {
			t.Fatalf("expected 403 without calling next, got %d called=%v", w.Code, called)
		}
		assertErrorCode(t, w, ErrCodeForbidden)
	})

	t.Run("denies missing token", func(t *testing.T) {
		w, called := run(&Server{adminTokenHash: hash}, "")
		if w.Code != http.StatusUnauthorized || called {
			t.Fatalf("expected 401 without calling next, got %d called=%v", w.Code, called)
		}
		assertErrorCode(t, w, ErrCodeUnauthorized)
	})

	t.Run("denies wrong token", func(t *testing.T) {
		w, called := run(&Server{adminTokenHash: hash}, "Bearer not-the-admin-token")
		if w.Code != http.StatusForbidden || called {
			t.Fatalf("expected 403 without calling next, got %d called=%v", w.Code, called)
		}
	})

	t.Run("allows valid token", func(t *testing.T) {
		w, called := run(&Server{adminTokenHash: hash}, "bearer "+token)
		if w.Code != http.StatusNoContent || !called {
			t.Fatalf("expected 204 from next, got %d called=%v", w.Code, called)
		}
	})
}

func TestAcquireLimiterRejectsWhenFull(t *testing.T) {
	srv := &Server{}
	limiter := make(chan struct{}, 1)

	first := httptest.NewRecorder()
	if !srv.acquireLimiter(limiter, first, httptest.NewRequest(http.MethodPost, "/", nil), "score import") {
		t.Fatal("expected first acquire to succeed")
	}

	second := httptest.NewRecorder()
	if srv.acquireLimiter(limiter, second, httptest.NewRequest(http.MethodPost, "/", nil), "score import") {
		t.Fatal("expected second acquire to fail")
	}
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	assertErrorCode(t, second, ErrCodeResourceExhausted)

	srv.releaseLimiter(limiter)
	if !srv.acquireLimiter(limiter, httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil), "score import") {
		t.Fatal("expected acquire after release to succeed")
	}
}

func TestRequestLoggingCapturesStatusAndBytes(t *testing.T) {
	srv := &Server{}
	var captured *loggingResponseWriter
	handler := srv.withRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = w.(*loggingResponseWriter)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("hello"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/info", nil))
	if captured == nil {
		t.Fatal("expected logging response writer")
	}
	if captured.Status() != http.StatusAccepted || captured.bytes != 5 {
		t.Fatalf("unexpected capture: status=%d bytes=%d", captured.Status(), captured.bytes)
	}
}

func TestRequestLoggingAssignsRequestIDs(t *testing.T) {
	srv := &Server{}

	var seen string
	handler := srv.withRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFrom(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/info", nil))
	generated := w.Header().Get(requestIDHeader)
	if generated == "" || generated != seen {
		t.Fatalf("expected generated id in header and context, got header=%q context=%q", generated, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
	req.Header.Set(requestIDHeader, "import-batch-7")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "import-batch-7" || seen != "import-batch-7" {
		t.Fatalf("expected caller id to be kept, got header=%q context=%q", got, seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/info", nil)
	req.Header.Set(requestIDHeader, "has space")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got == "has space" || got == "" {
		t.Fatalf("expected unprintable id to be replaced, got %q", got)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if got := w.Header().Get(requestIDHeader); got != "" {
		t.Fatalf("expected no id on health probes, got %q", got)
	}
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	var errResp api.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.ErrorCode != want {
		t.Fatalf("expected error_code %d, got %d (%s)", want, errResp.ErrorCode, errResp.Error)
	}
}
