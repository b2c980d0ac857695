package infra

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/Vovarama1992/storyreels/internal/models"
	"github.com/Vovarama1992/storyreels/internal/ports"
)

type MemoryProjectionRepo struct {
	mu     sync.RWMutex
	latest map[models.Category]string
	reels  []string
}

func NewMemoryProjectionRepo() *MemoryProjectionRepo {
	return &MemoryProjectionRepo{latest: make(map[models.Category]string)}
}

var _ ports.ProjectionRepository = (*MemoryProjectionRepo)(nil)

func (m *MemoryProjectionRepo) Apply(_ context.Context, rec models.MediaRecord) error {
	category := rec.Category()
	url := rec.URL()
	if category == "" || url == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[category] = url
	if category == models.UserReel {
		m.reels = append(m.reels, url)
	}
	return nil
}

func (m *MemoryProjectionRepo) Latest(_ context.Context, category models.Category) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest[category], nil
}

func (m *MemoryProjectionRepo) AllReels(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.reels), nil
}

func (m *MemoryProjectionRepo) Replace(_ context.Context, snap models.Snapshot) error {
	latest := make(map[models.Category]string, len(snap.Latest))
	maps.Copy(latest, snap.Latest)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = latest
	m.reels = slices.Clone(snap.Reels)
	return nil
}
