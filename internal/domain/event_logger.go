package domain

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/storyreels/internal/metrics"
	"github.com/Vovarama1992/storyreels/internal/models"
	"github.com/Vovarama1992/storyreels/internal/ports"
)

var errQueueFull = errors.New("event queue full")

// recordApplier is told about every record before it is queued and again
// once the logger is done with it.
type recordApplier interface {
	Apply(ctx context.Context, rec models.MediaRecord) error
	Acknowledge(rec models.MediaRecord)
}

// EventLogger appends records to the external log without ever blocking or
// failing the caller. Records are applied to the local projection first and
// then shipped by a single dispatcher goroutine. A nil store keeps records
// local.
type EventLogger struct {
	store   ports.LogStore
	proj    recordApplier
	log     *logger.ZapLogger
	timeout time.Duration
	now     func() time.Time

	queue     chan models.MediaRecord
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once

	mu      sync.RWMutex
	stopped bool
}

func NewEventLogger(store ports.LogStore, proj recordApplier, log *logger.ZapLogger, queueSize int, timeout time.Duration) *EventLogger {
	if queueSize <= 0 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EventLogger{
		store:   store,
		proj:    proj,
		log:     log,
		timeout: timeout,
		now:     time.Now,
		queue:   make(chan models.MediaRecord, queueSize),
	}
}

func (l *EventLogger) Start() {
	l.startOnce.Do(func() {
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			for rec := range l.queue {
				l.deliver(rec)
			}
		}()
	})
}

// Stop delivers everything still queued, then returns.
func (l *EventLogger) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		close(l.queue)
		l.mu.Unlock()
		l.wg.Wait()
	})
}

// Log records one event. It always returns immediately.
func (l *EventLogger) Log(ctx context.Context, ip string, event models.EventKind, fields models.RecordFields) {
	now := l.now()
	rec := models.MediaRecord{
		Timestamp:  now.Format(models.TimestampLayout),
		IP:         ip,
		Event:      event,
		Password:   fields.Password,
		Chat:       fields.Chat,
		StoryURL:   fields.StoryURL,
		ReelsURL:   fields.ReelsURL,
		RecordedAt: now,
	}

	if l.proj != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		if err := l.proj.Apply(pctx, rec); err != nil {
			l.warn("projection update failed", err, rec)
		}
		cancel()
	}

	if l.store == nil {
		l.acknowledge(rec)
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.stopped {
		metrics.LogRecordsDropped.WithLabelValues("stopped").Inc()
		l.warn("event dropped", ports.ErrLogDelivery, rec)
		l.acknowledge(rec)
		return
	}

	select {
	case l.queue <- rec:
	default:
		metrics.LogRecordsDropped.WithLabelValues("queue_full").Inc()
		l.warn("event dropped", errQueueFull, rec)
		l.acknowledge(rec)
	}
}

func (l *EventLogger) deliver(rec models.MediaRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	if err := l.store.Append(ctx, rec); err != nil {
		metrics.LogRecordsDropped.WithLabelValues("delivery").Inc()
		l.warn("event delivery failed", err, rec)
	}
	l.acknowledge(rec)
}

func (l *EventLogger) acknowledge(rec models.MediaRecord) {
	if l.proj != nil {
		l.proj.Acknowledge(rec)
	}
}

func (l *EventLogger) warn(msg string, err error, rec models.MediaRecord) {
	l.log.Log(logger.LogEntry{
		Level:   "warn",
		Message: msg,
		Error:   err,
		Fields: map[string]any{
			"event": string(rec.Event),
			"ip":    rec.IP,
		},
	})
}
