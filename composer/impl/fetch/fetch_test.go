package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchHTTP(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/hero.png":
			w.Write([]byte("png bytes"))
		case "/empty.png":
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := New(time.Second, time.Minute)
	ctx := context.Background()

	tests := []struct {
		name    string
		path    string
		want    []byte
		wantErr bool
	}{
		{name: "ok", path: "/hero.png", want: []byte("png bytes")},
		{name: "cached", path: "/hero.png", want: []byte("png bytes")},
		{name: "not found", path: "/missing.png", wantErr: true},
		{name: "empty body", path: "/empty.png", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fetcher.Fetch(ctx, server.URL+tt.path)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Fetch = %q, want %q", got, tt.want)
			}
		})
	}

	// ok + cached hit the server once, the two failures once each.
	if got := hits.Load(); got != 3 {
		t.Errorf("server hits = %d, want 3", got)
	}
}

func TestFetchSharesConcurrentDownloads(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte("shared"))
	}))
	defer server.Close()

	fetcher := New(5*time.Second, time.Minute)
	var wg sync.WaitGroup
	results := make([][]byte, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = fetcher.Fetch(context.Background(), server.URL+"/same.png")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, result := range results {
		if string(result) != "shared" {
			t.Errorf("results[%d] = %q", i, result)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
}

func TestFetchSurvivesFirstCallerCancel(t *testing.T) {
	var hits atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		w.Write([]byte("shared"))
	}))
	defer server.Close()

	fetcher := New(5*time.Second, time.Minute)
	location := server.URL + "/same.png"

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		_, err := fetcher.Fetch(ctx, location)
		errChan <- err
	}()
	<-started
	cancel()
	cancelledErr := <-errChan
	close(release)

	if !errors.Is(cancelledErr, context.Canceled) {
		t.Errorf("cancelled Fetch error = %v, want context.Canceled", cancelledErr)
	}
	// The download started for the cancelled caller still completes and serves everyone else.
	got, err := fetcher.Fetch(context.Background(), location)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(got) != "shared" {
		t.Errorf("Fetch = %q", got)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
}

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hero.png")
	if err := os.WriteFile(path, []byte("local"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	fetcher := New(time.Second, time.Minute)
	got, err := fetcher.Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(got) != "local" {
		t.Errorf("Fetch = %q", got)
	}

	if _, err := fetcher.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
