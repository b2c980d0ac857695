package ports

import (
	"context"
	"errors"

	"github.com/Vovarama1992/storyreels/internal/models"
)

var ErrLogDelivery = errors.New("log delivery failed")

type LogStore interface {
	Append(ctx context.Context, rec models.MediaRecord) error
	FetchLatest(ctx context.Context, category models.Category) (string, error)
	FetchAllReels(ctx context.Context) ([]string, error)
}
