package ports

import "github.com/Vovarama1992/storyreels/internal/models"

type UploadEvent struct {
	Category models.Category
	Name     string
	URL      string
	Fallback bool
}

type UploadNotifier interface {
	Events() <-chan UploadEvent
}
