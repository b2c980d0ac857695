package ports

import (
	"context"

	"github.com/Vovarama1992/storyreels/internal/models"
)

// ProjectionRepository keeps the latest URL per category and the list of all
// reels, updated on every appended upload record.
type ProjectionRepository interface {
	Apply(ctx context.Context, rec models.MediaRecord) error
	Latest(ctx context.Context, category models.Category) (string, error)
	AllReels(ctx context.Context) ([]string, error)

	// Replace swaps the whole state, used when hydrating from the external log.
	Replace(ctx context.Context, snap models.Snapshot) error
}
