package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T, publicBase string) *localStorage {
	t.Helper()
	dir := t.TempDir()
	s, err := newLocalStorage(config.StorageConfig{BaseDir: dir, PublicBaseURL: publicBase})
	require.NoError(t, err)
	return s
}

func TestLocalExists(t *testing.T) {
	s := newTestLocal(t, "")
	path := filepath.Join(s.baseDir, "reviews", "5")
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "cover.jpg"), []byte("jpeg"), 0o644))

	ok, err := s.Exists(context.Background(), "reviews/5/cover.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(context.Background(), "reviews/5/missing.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	// Directories are not objects.
	ok, err = s.Exists(context.Background(), "reviews/5")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalRejectsTraversal(t *testing.T) {
	s := newTestLocal(t, "")
	_, err := s.Exists(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}

func TestLocalPublicURL(t *testing.T) {
	s := newTestLocal(t, "https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/reviews/5/cover.jpg", s.PublicURL("/reviews/5/cover.jpg"))

	s2 := newTestLocal(t, "")
	assert.Equal(t, "/files/a.jpg", s2.PublicURL("a.jpg"))
}
