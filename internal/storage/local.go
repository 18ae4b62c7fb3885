package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/config"
)

type localStorage struct {
	baseDir   string
	publicURL string
}

func newLocalStorage(cfg config.StorageConfig) (*localStorage, error) {
	baseDir, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage base dir: %w", err)
	}
	return &localStorage{
		baseDir:   baseDir,
		publicURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// resolve maps a storage-relative path to an absolute path under baseDir,
// rejecting traversal outside of it.
func (s *localStorage) resolve(path string) (string, error) {
	cleaned := filepath.Join(s.baseDir, filepath.FromSlash(strings.TrimLeft(path, "/")))
	if cleaned != s.baseDir && !strings.HasPrefix(cleaned, s.baseDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q escapes storage root", path)
	}
	return cleaned, nil
}

func (s *localStorage) Exists(ctx context.Context, path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (s *localStorage) PublicURL(path string) string {
	key := strings.TrimLeft(path, "/")
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	return "/files/" + key
}
