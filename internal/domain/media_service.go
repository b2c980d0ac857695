package domain

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/storyreels/internal/metrics"
	"github.com/Vovarama1992/storyreels/internal/models"
	"github.com/Vovarama1992/storyreels/internal/ports"
)

const reelPrefix = "reel_"

type eventLog interface {
	Log(ctx context.Context, ip string, event models.EventKind, fields models.RecordFields)
}

type UploadRequest struct {
	File     io.Reader
	Filename string
	IP       string
	BaseURL  string // scheme://host used for fallback URLs
}

type UploadResult struct {
	Name     string
	URL      string
	Fallback bool
}

// MediaService runs the upload pipeline: validate, stage, submit remotely,
// fall back to the stage, log.
type MediaService struct {
	stage         *Stage
	store         ports.MediaStore
	auth          ports.AuthService
	events        eventLog
	log           *logger.ZapLogger
	uploadTimeout time.Duration
	now           func() time.Time

	notify chan ports.UploadEvent
}

func NewMediaService(
	stage *Stage,
	store ports.MediaStore,
	auth ports.AuthService,
	events eventLog,
	log *logger.ZapLogger,
	uploadTimeout time.Duration,
) *MediaService {
	return &MediaService{
		stage:         stage,
		store:         store,
		auth:          auth,
		events:        events,
		log:           log,
		uploadTimeout: uploadTimeout,
		now:           time.Now,
		notify:        make(chan ports.UploadEvent, 100),
	}
}

func (m *MediaService) Events() <-chan ports.UploadEvent { return m.notify }

// StoryCategory maps the uploader form value to a story category.
func StoryCategory(uploader string) models.Category {
	if uploader == "admin" {
		return models.AdminStory
	}
	return models.UserStory
}

func (m *MediaService) Upload(ctx context.Context, category models.Category, req UploadRequest) (UploadResult, error) {
	if req.File == nil || req.Filename == "" {
		metrics.UploadRejects.WithLabelValues("bad_request").Inc()
		return UploadResult{}, fmt.Errorf("%w: no file", ErrBadRequest)
	}

	ext, ok := Extension(req.Filename)
	if !ok {
		metrics.UploadRejects.WithLabelValues("unsupported_type").Inc()
		return UploadResult{}, fmt.Errorf("%w: %q", ErrUnsupportedType, req.Filename)
	}

	prefix := ""
	if category == models.UserReel {
		prefix = reelPrefix
	}
	name := NewName(prefix, ext, m.now())

	staged, err := m.stage.Stage(req.File, name)
	if err != nil {
		return UploadResult{}, err
	}

	res := UploadResult{Name: staged.Name}
	res.URL, err = m.submit(ctx, staged, category)
	if err != nil {
		res.URL = FallbackURL(req.BaseURL, staged.Name)
		res.Fallback = true
		m.log.Log(logger.LogEntry{
			Level:   "warn",
			Message: "remote submission failed, serving from stage",
			Error:   err,
			Fields:  map[string]any{"name": staged.Name, "category": string(category)},
		})
	}

	fields := models.RecordFields{StoryURL: res.URL}
	if category == models.UserReel {
		fields = models.RecordFields{ReelsURL: res.URL}
	}
	m.events.Log(ctx, req.IP, category.UploadEvent(), fields)

	target := "remote"
	if res.Fallback {
		target = "fallback"
	}
	metrics.Uploads.WithLabelValues(string(category), target).Inc()

	m.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "upload accepted",
		Fields: map[string]any{
			"name":     staged.Name,
			"category": string(category),
			"fallback": res.Fallback,
			"ip":       req.IP,
		},
	})

	select {
	case m.notify <- ports.UploadEvent{Category: category, Name: staged.Name, URL: res.URL, Fallback: res.Fallback}:
	default:
	}

	return res, nil
}

// submit runs detached from client cancellation but bounded by uploadTimeout.
func (m *MediaService) submit(ctx context.Context, staged models.StagedFile, category models.Category) (string, error) {
	if m.store == nil {
		return "", fmt.Errorf("%w: no media store configured", ports.ErrRemoteSubmission)
	}

	ctx = context.WithoutCancel(ctx)
	if m.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.uploadTimeout)
		defer cancel()
	}

	start := time.Now()
	u, err := m.store.Submit(ctx, staged.Path, category)
	metrics.RemoteSubmitDuration.WithLabelValues(string(category)).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	if u == "" {
		return "", fmt.Errorf("%w: empty url", ports.ErrRemoteSubmission)
	}
	return u, nil
}

// CheckPassword logs the attempt whatever the outcome.
func (m *MediaService) CheckPassword(ctx context.Context, ip, password string) bool {
	ok := m.auth.CheckPassword(password)
	m.events.Log(ctx, ip, models.EventPasswordAttempt, models.RecordFields{Password: password})

	result := "rejected"
	if ok {
		result = "accepted"
	}
	metrics.PasswordAttempts.WithLabelValues(result).Inc()
	return ok
}

func FallbackURL(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + "/uploads/" + url.PathEscape(name)
}
