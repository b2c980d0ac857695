package domain

import (
	"context"
	"sync"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/storyreels/internal/models"
	"go.uber.org/zap"
)

func nopLogger() *logger.ZapLogger {
	return logger.NewZapLogger(zap.NewNop().Sugar())
}

// fakeLogStore records appends and serves canned reads.
type fakeLogStore struct {
	mu        sync.Mutex
	appended  []models.MediaRecord
	appendErr error

	latest   map[models.Category]string
	reels    []string
	fetchErr error
	fetches  int
	onFetch  func() // runs before every read, outside the lock
}

func (f *fakeLogStore) Append(_ context.Context, rec models.MediaRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, rec)
	return nil
}

func (f *fakeLogStore) FetchLatest(_ context.Context, c models.Category) (string, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	return f.latest[c], nil
}

func (f *fakeLogStore) FetchAllReels(context.Context) ([]string, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]string(nil), f.reels...), nil
}

func (f *fakeLogStore) records() []models.MediaRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MediaRecord(nil), f.appended...)
}

// memProjection is a minimal ProjectionRepository.
type memProjection struct {
	mu     sync.Mutex
	latest map[models.Category]string
	reels  []string
}

func newMemProjection() *memProjection {
	return &memProjection{latest: map[models.Category]string{}}
}

func (p *memProjection) Apply(_ context.Context, rec models.MediaRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c := rec.Category(); c != "" {
		p.latest[c] = rec.URL()
		if c == models.UserReel {
			p.reels = append(p.reels, rec.URL())
		}
	}
	return nil
}

func (p *memProjection) Acknowledge(models.MediaRecord) {}

func (p *memProjection) Latest(_ context.Context, c models.Category) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest[c], nil
}

func (p *memProjection) AllReels(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.reels...), nil
}

func (p *memProjection) Replace(_ context.Context, snap models.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = map[models.Category]string{}
	for k, v := range snap.Latest {
		p.latest[k] = v
	}
	p.reels = append([]string(nil), snap.Reels...)
	return nil
}
