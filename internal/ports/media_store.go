package ports

import (
	"context"
	"errors"

	"github.com/Vovarama1992/storyreels/internal/models"
)

var ErrRemoteSubmission = errors.New("remote submission failed")

// MediaStore uploads a staged file to the remote media service and returns its
// playback URL. Every failure wraps ErrRemoteSubmission.
type MediaStore interface {
	Submit(ctx context.Context, path string, category models.Category) (string, error)
}
