package httputil

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/recompose/pkg/cache"
)

var fastBackoff = cache.Backoff{Attempts: 3, Delay: time.Millisecond}

func newTestClient(t *testing.T, srv *httptest.Server) (*Client, cache.Cache) {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return NewClient(c, nil, time.Hour).WithHTTPClient(srv.Client()).WithBackoff(fastBackoff), c
}

func TestClientGetCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer t" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv)
	client.WithHeaders(map[string]string{"Authorization": "Bearer t"})

	for range 2 {
		data, err := client.Get(context.Background(), srv.URL+"/hero.png")
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if string(data) != "png-bytes" {
			t.Errorf("Get() = %q", data)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestClientGetRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv)
	data, err := client.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(data) != "ok" || hits.Load() != 3 {
		t.Errorf("Get() = %q after %d hits", data, hits.Load())
	}
}

func TestClientGetErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantErr  error
		wantHits int32
	}{
		{"not found", http.StatusNotFound, cache.ErrNotFound, 1},
		{"forbidden", http.StatusForbidden, cache.ErrNetwork, 1},
		{"server error", http.StatusInternalServerError, cache.ErrNetwork, 3},
		{"rate limited", http.StatusTooManyRequests, cache.ErrNetwork, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client, _ := newTestClient(t, srv)
			_, err := client.Get(context.Background(), srv.URL)
			if !stderrors.Is(err, tt.wantErr) {
				t.Errorf("Get() error = %v, want %v", err, tt.wantErr)
			}
			if n := hits.Load(); n != tt.wantHits {
				t.Errorf("server hits = %d, want %d", n, tt.wantHits)
			}
		})
	}
}

func TestClientGetTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	client, c := newTestClient(t, srv)
	client.MaxBytes = 16
	if _, err := client.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("Get() want error for oversized body")
	}
	if _, ok, _ := c.Get(context.Background(), cache.NewDefaultKeyer().RemoteKey(srv.URL)); ok {
		t.Error("oversized body was cached")
	}
}

func TestClientGetRejectsNonHTTP(t *testing.T) {
	client := NewClient(nil, nil, 0)
	for _, u := range []string{"data:image/png;base64,AAAA", "file:///etc/passwd", ""} {
		if _, err := client.Get(context.Background(), u); err == nil {
			t.Errorf("Get(%q) want error", u)
		}
	}
}

func TestIsRemote(t *testing.T) {
	tests := map[string]bool{
		"https://a.test/x.png": true,
		"http://a.test":        true,
		"data:image/png,":      false,
		"ftp://a.test":         false,
	}
	for in, want := range tests {
		if got := IsRemote(in); got != want {
			t.Errorf("IsRemote(%q) = %v, want %v", in, got, want)
		}
	}
}
