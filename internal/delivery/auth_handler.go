package delivery

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
)

type passwordChecker interface {
	CheckPassword(ctx context.Context, ip, password string) bool
}

type AuthHandler struct {
	auth passwordChecker
	log  *logger.ZapLogger
}

func NewAuthHandler(auth passwordChecker, log *logger.ZapLogger) *AuthHandler {
	return &AuthHandler{
		auth: auth,
		log:  log,
	}
}

// POST /save_password
func (h *AuthHandler) SavePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	// a missing or malformed body is an attempt with an empty password
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req)

	ip := clientIP(r)
	if !h.auth.CheckPassword(r.Context(), ip, req.Password) {
		h.log.Log(logger.LogEntry{
			Level:   "info",
			Message: "password rejected",
			Fields:  map[string]any{"ip": ip},
		})
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"message": "Incorrect password!",
		})
		return
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "password accepted",
		Fields:  map[string]any{"ip": ip},
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"redirect": MainView,
	})
}
