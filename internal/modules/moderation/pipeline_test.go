package moderation

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.ReviewModel{},
		&models.TripCommentModel{},
		&models.CheckpointImageModel{},
	))
	return db
}

func classifierServer(t *testing.T, response string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, response)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestProcessAppliesVerdict(t *testing.T) {
	db := testDB(t)
	review := models.ReviewModel{TripID: "trip-1", AuthorID: "user-1", Rating: 4, Text: "nice"}
	require.NoError(t, db.Create(&review).Error)

	store, _ := localStore(t)
	server := classifierServer(t, `{"normal":0.1,"adult":0.8,"porn":0.05,"sexy":0.05}`)
	p := NewPipeline(db, enabledClassifier(t, server.URL, store), store, 0.7, zap.NewNop())

	var flaggedID string
	p.OnFlagged = func(_ context.Context, kind TargetKind, id string, results models.ModerationResults) {
		flaggedID = id
	}

	err := p.Process(context.Background(), KindReview, review.ID, "https://img.example.com/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, review.ID, flaggedID)

	var got models.ReviewModel
	require.NoError(t, db.First(&got, "id = ?", review.ID).Error)
	assert.True(t, got.IsFlagged)
	require.NotNil(t, got.ModerationResults)
	assert.False(t, got.ModerationResults.Safe)
	assert.Equal(t, got.IsFlagged, !got.ModerationResults.Safe)
}

func TestProcessReprocessingReplacesVerdict(t *testing.T) {
	db := testDB(t)
	image := models.CheckpointImageModel{CheckpointID: "cp-1", ImagePath: "https://img.example.com/a.jpg"}
	require.NoError(t, db.Create(&image).Error)

	store, _ := localStore(t)

	flagging := classifierServer(t, `{"normal":0.1,"adult":0.8}`)
	p := NewPipeline(db, enabledClassifier(t, flagging.URL, store), store, 0.7, zap.NewNop())
	require.NoError(t, p.Process(context.Background(), KindCheckpointImage, image.ID, image.ImagePath))

	var got models.CheckpointImageModel
	require.NoError(t, db.First(&got, "id = ?", image.ID).Error)
	assert.True(t, got.IsFlagged)

	// A later run with a different outcome overwrites wholesale.
	clearing := classifierServer(t, `{"normal":0.9,"adult":0.05}`)
	p = NewPipeline(db, enabledClassifier(t, clearing.URL, store), store, 0.7, zap.NewNop())
	require.NoError(t, p.Process(context.Background(), KindCheckpointImage, image.ID, image.ImagePath))

	require.NoError(t, db.First(&got, "id = ?", image.ID).Error)
	assert.False(t, got.IsFlagged)
	require.NotNil(t, got.ModerationResults)
	assert.True(t, got.ModerationResults.Safe)
}

func TestProcessLocalFileReachesClassifier(t *testing.T) {
	db := testDB(t)
	review := models.ReviewModel{TripID: "trip-1", AuthorID: "user-1", Rating: 5, Text: "fine"}
	require.NoError(t, db.Create(&review).Error)

	store, dir := localStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "uploads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uploads", "pic.jpg"), []byte("jpeg"), 0o644))

	server := classifierServer(t, `{"normal":1.0}`)
	p := NewPipeline(db, enabledClassifier(t, server.URL, store), store, 0.7, zap.NewNop())

	require.NoError(t, p.Process(context.Background(), KindReview, review.ID, "uploads/pic.jpg"))

	var got models.ReviewModel
	require.NoError(t, db.First(&got, "id = ?", review.ID).Error)
	require.NotNil(t, got.ModerationResults)
	assert.True(t, got.ModerationResults.Safe)
	assert.False(t, got.IsFlagged)
}

func TestProcessTargetVanished(t *testing.T) {
	db := testDB(t)
	store, _ := localStore(t)
	server := classifierServer(t, `{"normal":1.0}`)
	p := NewPipeline(db, enabledClassifier(t, server.URL, store), store, 0.7, zap.NewNop())

	// An entity deleted between enqueue and execution is a skip.
	err := p.Process(context.Background(), KindComment, "no-such-id", "https://img.example.com/a.jpg")
	assert.NoError(t, err)
}

func TestProcessClassifierFailureIsRetryable(t *testing.T) {
	db := testDB(t)
	review := models.ReviewModel{TripID: "trip-1", AuthorID: "user-1", Rating: 3, Text: "ok"}
	require.NoError(t, db.Create(&review).Error)

	store, _ := localStore(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewPipeline(db, enabledClassifier(t, server.URL, store), store, 0.7, zap.NewNop())
	err := p.Process(context.Background(), KindReview, review.ID, "https://img.example.com/a.jpg")
	require.Error(t, err)

	// The entity stays untouched on failure.
	var got models.ReviewModel
	require.NoError(t, db.First(&got, "id = ?", review.ID).Error)
	assert.False(t, got.IsFlagged)
	assert.Nil(t, got.ModerationResults)
}
