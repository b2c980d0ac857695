package domain

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/storyreels/internal/metrics"
	"github.com/Vovarama1992/storyreels/internal/models"
)

// Stage is the local write-through buffer for uploads and the fallback
// public host for them.
type Stage struct {
	dir string
	log *logger.ZapLogger
}

func NewStage(dir string, log *logger.ZapLogger) (*Stage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("stage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create stage dir: %w", err)
	}
	return &Stage{dir: abs, log: log}, nil
}

func (s *Stage) Dir() string { return s.dir }

// Stage writes r fully to dir/name. The name must be fresh.
func (s *Stage) Stage(r io.Reader, name string) (models.StagedFile, error) {
	path, err := s.resolve(name)
	if err != nil {
		return models.StagedFile{}, fmt.Errorf("%w: invalid name %q", ErrStageIO, name)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return models.StagedFile{}, fmt.Errorf("%w: %v", ErrStageIO, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(path)
		return models.StagedFile{}, fmt.Errorf("%w: write %s: %v", ErrStageIO, name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return models.StagedFile{}, fmt.Errorf("%w: close %s: %v", ErrStageIO, name, err)
	}

	return models.StagedFile{
		Name: name,
		Path: path,
		Ext:  strings.TrimPrefix(filepath.Ext(name), "."),
	}, nil
}

// Open resolves name to a regular file inside the stage dir. Anything else,
// including traversal attempts and symlinks, is ErrNotFound.
func (s *Stage) Open(name string) (*os.File, os.FileInfo, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, nil, err
	}

	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, nil, ErrNotFound
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, ErrNotFound
	}
	return f, info, nil
}

func (s *Stage) resolve(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || strings.ContainsRune(name, 0) {
		return "", ErrNotFound
	}

	path := filepath.Join(s.dir, name)
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel != name {
		return "", ErrNotFound
	}
	return path, nil
}

// Purge removes staged files last modified before cutoff.
func (s *Stage) Purge(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read stage dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			s.log.Log(logger.LogEntry{
				Level:   "warn",
				Message: "stage purge failed",
				Error:   err,
				Fields:  map[string]any{"name": e.Name()},
			})
			continue
		}
		removed++
	}
	return removed, nil
}

// RunJanitor purges files older than retention every interval until ctx ends.
// A zero retention disables purging.
func (s *Stage) RunJanitor(ctx context.Context, retention, interval time.Duration) {
	if retention <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.Purge(now.Add(-retention))
			if err != nil {
				s.log.Log(logger.LogEntry{Level: "error", Message: "stage janitor", Error: err})
				continue
			}
			if n > 0 {
				metrics.StagePurged.Add(float64(n))
				s.log.Log(logger.LogEntry{
					Level:   "info",
					Message: "stage purged",
					Fields:  map[string]any{"removed": n, "retention": retention.String()},
				})
			}
		}
	}
}
