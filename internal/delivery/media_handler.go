package delivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/storyreels/internal/domain"
	"github.com/Vovarama1992/storyreels/internal/models"
	"github.com/go-chi/chi/v5"
)

type uploader interface {
	Upload(ctx context.Context, category models.Category, req domain.UploadRequest) (domain.UploadResult, error)
}

type latestReader interface {
	Latest(ctx context.Context, category models.Category) string
	AllReels(ctx context.Context) []string
}

type MediaHandler struct {
	media          uploader
	reader         latestReader
	stage          *domain.Stage
	log            *logger.ZapLogger
	publicBaseURL  string
	maxUploadBytes int64
}

func NewMediaHandler(
	media uploader,
	reader latestReader,
	stage *domain.Stage,
	log *logger.ZapLogger,
	publicBaseURL string,
	maxUploadBytes int64,
) *MediaHandler {
	return &MediaHandler{
		media:          media,
		reader:         reader,
		stage:          stage,
		log:            log,
		publicBaseURL:  publicBaseURL,
		maxUploadBytes: maxUploadBytes,
	}
}

// POST /upload_story_video
func (h *MediaHandler) UploadStory(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, func(r *http.Request) models.Category {
		return domain.StoryCategory(r.FormValue("uploader"))
	}, MainView)
}

// POST /userupload_reels
func (h *MediaHandler) UploadReel(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, func(*http.Request) models.Category {
		return models.UserReel
	}, ReelsView)
}

func (h *MediaHandler) upload(w http.ResponseWriter, r *http.Request, category func(*http.Request) models.Category, redirectTo string) {
	if h.maxUploadBytes > 0 {
		if r.ContentLength > h.maxUploadBytes {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "No file", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("video")
	if err != nil {
		http.Error(w, "No file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	cat := category(r)
	_, err = h.media.Upload(r.Context(), cat, domain.UploadRequest{
		File:     file,
		Filename: header.Filename,
		IP:       clientIP(r),
		BaseURL:  baseURL(h.publicBaseURL, r),
	})
	switch {
	case err == nil:
		http.Redirect(w, r, redirectTo, http.StatusFound)
	case errors.Is(err, domain.ErrBadRequest):
		http.Error(w, "No filename", http.StatusBadRequest)
	case errors.Is(err, domain.ErrUnsupportedType):
		http.Error(w, "Unsupported file", http.StatusBadRequest)
	default:
		h.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "upload failed",
			Error:   err,
			Fields:  map[string]any{"category": string(cat)},
		})
		http.Error(w, "failed to store upload", http.StatusInternalServerError)
	}
}

// GET /last_admin_story
func (h *MediaHandler) LastAdminStory(w http.ResponseWriter, r *http.Request) {
	h.latest(w, r, models.AdminStory)
}

// GET /last_user_story
func (h *MediaHandler) LastUserStory(w http.ResponseWriter, r *http.Request) {
	h.latest(w, r, models.UserStory)
}

// GET /last_user_reels
func (h *MediaHandler) LastUserReels(w http.ResponseWriter, r *http.Request) {
	h.latest(w, r, models.UserReel)
}

func (h *MediaHandler) latest(w http.ResponseWriter, r *http.Request, category models.Category) {
	writeJSON(w, http.StatusOK, map[string]string{
		"url": h.reader.Latest(r.Context(), category),
	})
}

// GET /all_user_reels
func (h *MediaHandler) AllUserReels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"urls": h.reader.AllReels(r.Context()),
	})
}

// GET /uploads/*
func (h *MediaHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")

	f, info, err := h.stage.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
