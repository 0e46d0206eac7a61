package imgrewrite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPFetcherReadsSuccessfulResponses(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(0, "ugcmigrate-test")
	result, err := fetcher.Fetch(context.Background(), srv.URL+"/a.png")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.StatusCode != http.StatusOK || result.ContentType != "image/png" || string(result.Body) != "png-bytes" {
		t.Fatalf("unexpected result: %#v", result)
	}
	if gotAgent != "ugcmigrate-test" {
		t.Fatalf("expected user agent, got %q", gotAgent)
	}
}

func TestHTTPFetcherSkipsBodyOnFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	result, err := NewHTTPFetcher(0, "").Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.StatusCode != http.StatusNotFound || len(result.Body) != 0 {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestHTTPFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	if _, err := NewHTTPFetcher(50*time.Millisecond, "").Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestHTTPFetcherConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewHTTPFetcher(time.Second, "").Fetch(context.Background(), url); err == nil {
		t.Fatal("expected connection error")
	}
}
