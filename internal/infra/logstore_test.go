package infra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Vovarama1992/storyreels/internal/models"
	"github.com/Vovarama1992/storyreels/internal/ports"
)

func TestHTTPLogStoreAppend(t *testing.T) {
	var (
		mu  sync.Mutex
		got map[string]string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST got %s", r.Method)
		}
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	store := NewHTTPLogStore(server.URL, server.Client())
	err := store.Append(context.Background(), models.MediaRecord{
		Timestamp: "2026-10-19 08:30:05",
		IP:        "192.0.2.1",
		Event:     models.EventAdminStoryUpload,
		StoryURL:  "https://cdn/a.mp4",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := map[string]string{
		"timestamp": "2026-10-19 08:30:05",
		"ip":        "192.0.2.1",
		"event":     "admin_story_upload",
		"password":  "",
		"chat":      "",
		"story_url": "https://cdn/a.mp4",
		"reels_url": "",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("field %s: expected %q got %q", k, v, got[k])
		}
	}
}

func TestHTTPLogStoreAppendFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	if err := NewHTTPLogStore(server.URL, nil).Append(context.Background(), models.MediaRecord{}); !errors.Is(err, ports.ErrLogDelivery) {
		t.Fatalf("expected ErrLogDelivery on 500 got %v", err)
	}
	if err := NewHTTPLogStore("", nil).Append(context.Background(), models.MediaRecord{}); !errors.Is(err, ports.ErrLogDelivery) {
		t.Fatalf("expected ErrLogDelivery without endpoint got %v", err)
	}

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(slow.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := NewHTTPLogStore(slow.URL, nil).Append(ctx, models.MediaRecord{}); !errors.Is(err, ports.ErrLogDelivery) {
		t.Fatalf("expected ErrLogDelivery on timeout got %v", err)
	}
}

func TestHTTPLogStoreReads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "abc" {
			t.Errorf("existing query lost: %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case q.Get("mode") == "all_reels":
			_, _ = w.Write([]byte(`{"urls":["https://cdn/r1.mp4","https://cdn/r2.mp4"]}`))
		case q.Get("mode") == "latest" && q.Get("story") == "admin":
			_, _ = w.Write([]byte(`{"story_url":"https://cdn/a.mp4"}`))
		case q.Get("mode") == "latest" && q.Get("story") == "reels":
			_, _ = w.Write([]byte(`{"reels_url":"https://cdn/r2.mp4","story_url":"ignored"}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(server.Close)

	store := NewHTTPLogStore(server.URL+"/exec?key=abc", nil)
	ctx := context.Background()

	if url, err := store.FetchLatest(ctx, models.AdminStory); err != nil || url != "https://cdn/a.mp4" {
		t.Fatalf("admin: %q %v", url, err)
	}
	if url, err := store.FetchLatest(ctx, models.UserReel); err != nil || url != "https://cdn/r2.mp4" {
		t.Fatalf("reels: %q %v", url, err)
	}
	if url, err := store.FetchLatest(ctx, models.UserStory); err != nil || url != "" {
		t.Fatalf("user story: %q %v", url, err)
	}
	urls, err := store.FetchAllReels(ctx)
	if err != nil || len(urls) != 2 {
		t.Fatalf("all reels: %v %v", urls, err)
	}
	if _, err := store.FetchLatest(ctx, models.AllReels); err == nil {
		t.Fatal("all_reels has no latest query")
	}
}

func TestHTTPLogStoreMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	t.Cleanup(server.Close)

	if _, err := NewHTTPLogStore(server.URL, nil).FetchLatest(context.Background(), models.UserStory); err == nil {
		t.Fatal("expected decode error")
	}
}
