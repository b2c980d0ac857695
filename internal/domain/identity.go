package domain

import (
	"encoding/hex"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const nameTimeLayout = "20060102150405"

var allowedExtensions = map[string]struct{}{
	"mp4":  {},
	"mov":  {},
	"webm": {},
	"ogg":  {},
	"mkv":  {},
}

// Extension returns the lowercase extension of filename if it is an accepted
// video container.
func Extension(filename string) (string, bool) {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		return "", false
	}
	ext = strings.ToLower(ext)
	_, ok := allowedExtensions[ext]
	return ext, ok
}

// NewName builds {prefix}{YYYYMMDDHHMMSS}_{32 hex}.{ext}. The random part makes
// names unique across concurrent callers within the same second.
func NewName(prefix, ext string, now time.Time) string {
	token := uuid.New()
	return prefix + now.Format(nameTimeLayout) + "_" + hex.EncodeToString(token[:]) + "." + ext
}
