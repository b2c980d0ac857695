package domain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Vovarama1992/storyreels/internal/models"
)

func TestLatestReaderColdReadsFromStore(t *testing.T) {
	store := &fakeLogStore{
		latest: map[models.Category]string{models.AdminStory: "https://cdn/a.mp4"},
		reels:  []string{"https://cdn/r1.mp4", "https://cdn/r2.mp4"},
	}
	r := NewLatestReader(store, newMemProjection(), nopLogger(), time.Second)
	ctx := context.Background()

	if got := r.Latest(ctx, models.AdminStory); got != "https://cdn/a.mp4" {
		t.Fatalf("expected admin story got %q", got)
	}
	if got := r.Latest(ctx, models.UserStory); got != "" {
		t.Fatalf("expected empty user story got %q", got)
	}
	if got := r.AllReels(ctx); len(got) != 2 || got[1] != "https://cdn/r2.mp4" {
		t.Fatalf("unexpected reels %v", got)
	}
}

func TestLatestReaderFailureIsEmpty(t *testing.T) {
	store := &fakeLogStore{fetchErr: errors.New("timeout")}
	r := NewLatestReader(store, newMemProjection(), nopLogger(), time.Second)

	if got := r.Latest(context.Background(), models.UserReel); got != "" {
		t.Fatalf("expected empty got %q", got)
	}
	got := r.AllReels(context.Background())
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice got %#v", got)
	}
	if err := r.Hydrate(context.Background()); err == nil {
		t.Fatal("expected hydrate error")
	}
	if r.Hydrated() {
		t.Fatal("reader must not be hydrated after failure")
	}
}

func TestLatestReaderServesProjectionAfterHydrate(t *testing.T) {
	store := &fakeLogStore{
		latest: map[models.Category]string{
			models.UserStory: "https://cdn/u.mp4",
			models.UserReel:  "https://cdn/r1.mp4",
		},
		reels: []string{"https://cdn/r1.mp4"},
	}
	proj := newMemProjection()
	r := NewLatestReader(store, proj, nopLogger(), time.Second)
	ctx := context.Background()

	if err := r.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	fetches := store.fetches

	if err := r.Apply(ctx, models.MediaRecord{Event: models.EventUserReelsUpload, ReelsURL: "https://cdn/r2.mp4"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Apply(ctx, models.MediaRecord{Event: models.EventPasswordAttempt, Password: "x"}); err != nil {
		t.Fatal(err)
	}

	if got := r.Latest(ctx, models.UserStory); got != "https://cdn/u.mp4" {
		t.Fatalf("unexpected user story %q", got)
	}
	if got := r.Latest(ctx, models.UserReel); got != "https://cdn/r2.mp4" {
		t.Fatalf("unexpected latest reel %q", got)
	}
	if got := r.Latest(ctx, models.AdminStory); got != "" {
		t.Fatalf("expected empty admin story got %q", got)
	}
	if got := r.AllReels(ctx); len(got) != 2 {
		t.Fatalf("expected 2 reels got %v", got)
	}
	if store.fetches != fetches {
		t.Fatal("hydrated reader must not query the store")
	}
}

func TestLatestReaderReplaysRecordsAppliedDuringHydrate(t *testing.T) {
	store := &fakeLogStore{reels: []string{"https://cdn/r1.mp4"}}
	r := NewLatestReader(store, newMemProjection(), nopLogger(), time.Second)
	ctx := context.Background()

	// appends land while the snapshot is being fetched; r1 made it into the log
	var once sync.Once
	store.onFetch = func() {
		once.Do(func() {
			_ = r.Apply(ctx, models.MediaRecord{Event: models.EventUserReelsUpload, ReelsURL: "https://cdn/r1.mp4"})
			_ = r.Apply(ctx, models.MediaRecord{Event: models.EventAdminStoryUpload, StoryURL: "https://cdn/a.mp4"})
		})
	}

	if err := r.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}

	if got := r.AllReels(ctx); len(got) != 1 {
		t.Fatalf("reel already in snapshot must not be duplicated: %v", got)
	}
	if got := r.Latest(ctx, models.AdminStory); got != "https://cdn/a.mp4" {
		t.Fatalf("pending record lost: %q", got)
	}
}

func TestHydrateKeepsQueuedRecords(t *testing.T) {
	store := &fakeLogStore{}
	r := NewLatestReader(store, newMemProjection(), nopLogger(), time.Second)
	events := NewEventLogger(store, r, nopLogger(), 8, time.Second)
	ctx := context.Background()

	// dispatcher not started: the record is projected but not yet in the log
	events.Log(ctx, "192.0.2.1", models.EventAdminStoryUpload, models.RecordFields{StoryURL: "https://cdn/a.mp4"})

	if err := r.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if got := r.Latest(ctx, models.AdminStory); got != "https://cdn/a.mp4" {
		t.Fatalf("queued record wiped by hydrate: %q", got)
	}

	events.Start()
	events.Stop()

	if got := len(store.records()); got != 1 {
		t.Fatalf("expected 1 delivered record got %d", got)
	}
	if got := r.Latest(ctx, models.AdminStory); got != "https://cdn/a.mp4" {
		t.Fatalf("expected latest after delivery got %q", got)
	}
}

func TestHydrateKeepsRecordsDeliveredDuringFetch(t *testing.T) {
	store := &fakeLogStore{}
	r := NewLatestReader(store, newMemProjection(), nopLogger(), time.Second)
	events := NewEventLogger(store, r, nopLogger(), 8, time.Second)
	ctx := context.Background()

	events.Log(ctx, "192.0.2.1", models.EventUserReelsUpload, models.RecordFields{ReelsURL: "https://cdn/r1.mp4"})

	// delivered after hydration started but missing from the snapshot
	var once sync.Once
	store.onFetch = func() {
		once.Do(func() {
			events.Start()
			events.Stop()
		})
	}

	if err := r.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if got := r.AllReels(ctx); len(got) != 1 || got[0] != "https://cdn/r1.mp4" {
		t.Fatalf("expected delivered reel to survive hydrate got %v", got)
	}

	// acknowledged records are not replayed by later hydrations
	store.onFetch = nil
	if err := r.Hydrate(ctx); err != nil {
		t.Fatalf("second hydrate: %v", err)
	}
	if got := r.AllReels(ctx); len(got) != 0 {
		t.Fatalf("snapshot is authoritative once the record is acknowledged, got %v", got)
	}
}

func TestFailedHydrateDoesNotDuplicate(t *testing.T) {
	store := &fakeLogStore{fetchErr: errors.New("timeout")}
	r := NewLatestReader(store, newMemProjection(), nopLogger(), time.Second)
	ctx := context.Background()

	_ = r.Apply(ctx, models.MediaRecord{Event: models.EventUserReelsUpload, ReelsURL: "https://cdn/r1.mp4"})
	if err := r.Hydrate(ctx); err == nil {
		t.Fatal("expected hydrate error")
	}

	r.MarkHydrated()
	if got := r.AllReels(ctx); len(got) != 1 {
		t.Fatalf("expected 1 reel got %v", got)
	}
}

func TestStandaloneReaderServesProjection(t *testing.T) {
	store := &fakeLogStore{fetchErr: errors.New("no endpoint")}
	r := NewLatestReader(store, newMemProjection(), nopLogger(), time.Second)
	r.MarkHydrated()

	events := NewEventLogger(nil, r, nopLogger(), 8, time.Second)
	events.Start()
	defer events.Stop()

	ctx := context.Background()
	events.Log(ctx, "192.0.2.1", models.EventAdminStoryUpload, models.RecordFields{StoryURL: "http://h/uploads/a.mp4"})
	events.Log(ctx, "192.0.2.1", models.EventUserReelsUpload, models.RecordFields{ReelsURL: "http://h/uploads/reel_b.mp4"})

	if got := r.Latest(ctx, models.AdminStory); got != "http://h/uploads/a.mp4" {
		t.Fatalf("expected projected story got %q", got)
	}
	if got := r.AllReels(ctx); len(got) != 1 {
		t.Fatalf("expected projected reel got %v", got)
	}
	if store.fetches != 0 {
		t.Fatalf("standalone reader must not query the store, got %d fetches", store.fetches)
	}
}
