package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RostislavDaniliv/lookify/internal/telemetry"
)

// ErrPathTraversal is returned when a relative media path escapes the
// media root. The message carries no path detail; the detail is logged
// server-side only.
var ErrPathTraversal = errors.New("invalid media path")

// Store owns the media directory tree: uploads partitioned by
// year/month and results partitioned by year-month.
type Store struct {
	root    string
	absRoot string
	baseURL string
}

func New(root, baseURL string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &Store{
		root:    root,
		absRoot: abs,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *Store) Root() string { return s.absRoot }

// Resolve maps a stored relative path to an absolute one, rejecting
// anything that would land outside the media root.
func (s *Store) Resolve(rel string) (string, error) {
	abs := filepath.Join(s.absRoot, filepath.FromSlash(rel))
	abs = filepath.Clean(abs)
	if abs != s.absRoot && !strings.HasPrefix(abs, s.absRoot+string(filepath.Separator)) {
		telemetry.L().Warn().
			Str("rel", rel).
			Msg("media_path_traversal_blocked")
		return "", ErrPathTraversal
	}
	return abs, nil
}

// URL returns the public URL for a stored relative path.
func (s *Store) URL(rel string) string {
	return s.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(rel), "/")
}

// SaveUpload writes normalized upload bytes under
// uploads/<year>/<month>/<uuid>.<ext>, where month is not zero padded.
// Returns the relative path. Filenames are random, so a collision
// means a bug; the file is opened exclusively and never overwritten.
func (s *Store) SaveUpload(data []byte, ext string) (string, error) {
	now := time.Now()
	dir := fmt.Sprintf("uploads/%d/%d", now.Year(), int(now.Month()))
	name := uuid.NewString() + "." + strings.TrimPrefix(ext, ".")
	return s.write(dir, name, data)
}

// SaveResult writes a generated result under
// results/<YYYY-MM>/<prefix>_<uuid>.jpeg.
func (s *Store) SaveResult(data []byte, prefix string) (string, error) {
	dir := "results/" + time.Now().Format("2006-01")
	name := fmt.Sprintf("%s_%s.jpeg", prefix, uuid.NewString())
	return s.write(dir, name, data)
}

func (s *Store) write(dir, name string, data []byte) (string, error) {
	rel := dir + "/" + name
	abs, err := s.Resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return rel, nil
}
