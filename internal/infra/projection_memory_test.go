package infra

import (
	"context"
	"testing"

	"github.com/Vovarama1992/storyreels/internal/models"
)

func TestMemoryProjection(t *testing.T) {
	repo := NewMemoryProjectionRepo()
	ctx := context.Background()

	if url, _ := repo.Latest(ctx, models.AdminStory); url != "" {
		t.Fatalf("expected empty got %q", url)
	}

	records := []models.MediaRecord{
		{Event: models.EventAdminStoryUpload, StoryURL: "a1"},
		{Event: models.EventUserReelsUpload, ReelsURL: "r1"},
		{Event: models.EventAdminStoryUpload, StoryURL: "a2"},
		{Event: models.EventPasswordAttempt, Password: "x"},
		{Event: models.EventUserReelsUpload, ReelsURL: "r2"},
	}
	for _, rec := range records {
		if err := repo.Apply(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	if url, _ := repo.Latest(ctx, models.AdminStory); url != "a2" {
		t.Fatalf("expected a2 got %q", url)
	}
	if url, _ := repo.Latest(ctx, models.UserReel); url != "r2" {
		t.Fatalf("expected r2 got %q", url)
	}
	reels, _ := repo.AllReels(ctx)
	if len(reels) != 2 || reels[0] != "r1" || reels[1] != "r2" {
		t.Fatalf("unexpected reels %v", reels)
	}

	// returned slices are copies
	reels[0] = "mutated"
	again, _ := repo.AllReels(ctx)
	if again[0] != "r1" {
		t.Fatal("projection state leaked")
	}

	if err := repo.Replace(ctx, models.Snapshot{Latest: map[models.Category]string{models.UserStory: "u"}}); err != nil {
		t.Fatal(err)
	}
	if url, _ := repo.Latest(ctx, models.AdminStory); url != "" {
		t.Fatalf("replace must clear old state, got %q", url)
	}
	if url, _ := repo.Latest(ctx, models.UserStory); url != "u" {
		t.Fatalf("expected u got %q", url)
	}
	if reels, _ := repo.AllReels(ctx); len(reels) != 0 {
		t.Fatalf("expected no reels got %v", reels)
	}
}
