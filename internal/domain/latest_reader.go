package domain

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/storyreels/internal/metrics"
	"github.com/Vovarama1992/storyreels/internal/models"
	"github.com/Vovarama1992/storyreels/internal/ports"
	"golang.org/x/sync/singleflight"
)

var latestCategories = []models.Category{models.AdminStory, models.UserStory, models.UserReel}

// LatestReader answers "most recent URL per category" and "all reels".
//
// Reads are served from the projection once it has been hydrated from the
// external log. Before that they go to the external log directly. Every
// failure yields an empty result.
//
// Upload records applied to the projection stay tracked until the event
// logger acknowledges them, so a hydration snapshot that predates their
// delivery cannot erase them.
type LatestReader struct {
	store   ports.LogStore
	proj    ports.ProjectionRepository
	log     *logger.ZapLogger
	timeout time.Duration

	hydrated atomic.Bool
	group    singleflight.Group

	// mu serializes projection writes with Replace.
	mu        sync.Mutex
	hydrating bool
	seq       uint64
	unacked   map[string]trackedRecord
	replay    map[string]trackedRecord
}

type trackedRecord struct {
	seq      uint64
	rec      models.MediaRecord
	deferred bool // not yet applied to the projection
}

func NewLatestReader(store ports.LogStore, proj ports.ProjectionRepository, log *logger.ZapLogger, timeout time.Duration) *LatestReader {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LatestReader{
		store:   store,
		proj:    proj,
		log:     log,
		timeout: timeout,
		unacked: make(map[string]trackedRecord),
	}
}

func (r *LatestReader) Hydrated() bool { return r.hydrated.Load() }

// MarkHydrated makes the projection the only source of reads. Used when
// there is no external log to hydrate from.
func (r *LatestReader) MarkHydrated() { r.hydrated.Store(true) }

// Apply feeds one appended record into the projection. While a hydration is
// in flight the record is held back and replayed on top of the fresh state.
func (r *LatestReader) Apply(ctx context.Context, rec models.MediaRecord) error {
	url := rec.URL()
	if rec.Category() == "" || url == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	t := trackedRecord{seq: r.seq, rec: rec}
	r.unacked[url] = t

	if r.hydrating {
		t.deferred = true
		r.replay[url] = t
		return nil
	}

	if err := r.proj.Apply(ctx, rec); err != nil {
		return fmt.Errorf("projection apply: %w", err)
	}
	return nil
}

// Acknowledge is called once the event logger is done with rec, delivered
// or dropped.
func (r *LatestReader) Acknowledge(rec models.MediaRecord) {
	url := rec.URL()
	if rec.Category() == "" || url == "" {
		return
	}

	r.mu.Lock()
	delete(r.unacked, url)
	r.mu.Unlock()
}

func (r *LatestReader) Latest(ctx context.Context, category models.Category) string {
	if r.hydrated.Load() {
		url, err := r.proj.Latest(ctx, category)
		if err == nil {
			metrics.LatestReads.WithLabelValues("projection").Inc()
			return url
		}
		r.warn("projection latest read failed", err, map[string]any{"category": string(category)})
	}

	v, err, _ := r.group.Do("latest:"+string(category), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.store.FetchLatest(ctx, category)
	})
	if err != nil {
		metrics.LatestReads.WithLabelValues("empty").Inc()
		r.warn("latest read failed", err, map[string]any{"category": string(category)})
		return ""
	}
	metrics.LatestReads.WithLabelValues("store").Inc()
	return v.(string)
}

// AllReels never returns nil.
func (r *LatestReader) AllReels(ctx context.Context) []string {
	if r.hydrated.Load() {
		urls, err := r.proj.AllReels(ctx)
		if err == nil {
			metrics.LatestReads.WithLabelValues("projection").Inc()
			return nonNil(urls)
		}
		r.warn("projection reels read failed", err, nil)
	}

	v, err, _ := r.group.Do("all_reels", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.store.FetchAllReels(ctx)
	})
	if err != nil {
		metrics.LatestReads.WithLabelValues("empty").Inc()
		r.warn("all reels read failed", err, nil)
		return []string{}
	}
	metrics.LatestReads.WithLabelValues("store").Inc()
	return nonNil(slices.Clone(v.([]string)))
}

// Hydrate replaces the projection with the external log's current state,
// then replays every record the log may not have had when the snapshot was
// taken: those unacknowledged at the start and those applied meanwhile.
func (r *LatestReader) Hydrate(ctx context.Context) error {
	r.mu.Lock()
	if r.hydrating {
		r.mu.Unlock()
		return fmt.Errorf("hydrate already running")
	}
	r.hydrating = true
	r.replay = maps.Clone(r.unacked)
	r.mu.Unlock()

	snap, fetchErr := r.fetchSnapshot(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	replay := slices.SortedFunc(maps.Values(r.replay), func(a, b trackedRecord) int {
		return cmp.Compare(a.seq, b.seq)
	})
	r.replay = nil
	r.hydrating = false

	if fetchErr == nil {
		if err := r.proj.Replace(ctx, snap); err != nil {
			fetchErr = fmt.Errorf("hydrate replace: %w", err)
		}
	}
	replaced := fetchErr == nil

	for _, t := range replay {
		// without a fresh snapshot only the held-back records are missing
		if !replaced && !t.deferred {
			continue
		}
		if replaced && t.rec.Category() == models.UserReel && slices.Contains(snap.Reels, t.rec.ReelsURL) {
			continue
		}
		if err := r.proj.Apply(ctx, t.rec); err != nil {
			r.warn("projection replay failed", err, map[string]any{"event": string(t.rec.Event)})
		}
	}

	if fetchErr != nil {
		return fetchErr
	}
	r.hydrated.Store(true)
	return nil
}

func (r *LatestReader) fetchSnapshot(ctx context.Context) (models.Snapshot, error) {
	snap := models.Snapshot{Latest: make(map[models.Category]string, len(latestCategories))}
	for _, c := range latestCategories {
		fctx, cancel := context.WithTimeout(ctx, r.timeout)
		url, err := r.store.FetchLatest(fctx, c)
		cancel()
		if err != nil {
			return models.Snapshot{}, fmt.Errorf("hydrate %s: %w", c, err)
		}
		if url != "" {
			snap.Latest[c] = url
		}
	}

	fctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	reels, err := r.store.FetchAllReels(fctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("hydrate reels: %w", err)
	}
	snap.Reels = reels
	return snap, nil
}

// HydrateLoop retries Hydrate every interval until it succeeds or ctx ends.
func (r *LatestReader) HydrateLoop(ctx context.Context, interval time.Duration) {
	for {
		err := r.Hydrate(ctx)
		if err == nil {
			r.log.Log(logger.LogEntry{Level: "info", Message: "projection hydrated"})
			return
		}
		r.warn("projection hydrate failed", err, map[string]any{"retryIn": interval.String()})

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (r *LatestReader) warn(msg string, err error, fields map[string]any) {
	r.log.Log(logger.LogEntry{
		Level:   "warn",
		Message: msg,
		Error:   err,
		Fields:  fields,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
