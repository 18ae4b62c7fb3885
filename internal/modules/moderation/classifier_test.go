package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/config"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/models"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func localStore(t *testing.T) (storage.Storage, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.New(config.StorageConfig{
		Driver:        "local",
		BaseDir:       dir,
		PublicBaseURL: "https://cdn.example.com",
	})
	require.NoError(t, err)
	return store, dir
}

func enabledClassifier(t *testing.T, apiURL string, store storage.Storage) *Classifier {
	t.Helper()
	return NewClassifier(config.ModerationConfig{
		Enable:    true,
		APIURL:    apiURL,
		APIKey:    "moderation-secret",
		Threshold: 0.7,
		TimeoutMS: 2000,
	}, store, zap.NewNop())
}

func TestCheckDisabledSentinel(t *testing.T) {
	store, _ := localStore(t)
	c := NewClassifier(config.ModerationConfig{Enable: false}, store, zap.NewNop())

	result, err := c.Check(context.Background(), "uploads/pic.jpg", 0.7)
	require.NoError(t, err)

	assert.True(t, result.Safe)
	assert.Equal(t, DisabledReason, result.Reason)
	// Sentinel: never evaluated, so no scores at all.
	assert.Nil(t, result.Adult)
	assert.Nil(t, result.Porn)
	assert.Nil(t, result.Sexy)
	assert.Nil(t, result.Normal)
}

func TestCheckRatioRule(t *testing.T) {
	cases := []struct {
		name     string
		response string
		wantSafe bool
	}{
		{"normal dominates", `{"normal":0.9,"adult":0.05,"porn":0.02,"sexy":0.03}`, true},
		{"adult dominates", `{"normal":0.1,"adult":0.8,"porn":0.05,"sexy":0.05}`, false},
		{"provider safe flag wins", `{"safe":false,"normal":0.9,"adult":0.05,"porn":0.02,"sexy":0.03}`, false},
		{"scores absent default safe", `{}`, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "moderation-secret", r.Header.Get("X-Secret-Key"))
				fmt.Fprint(w, tc.response)
			}))
			defer server.Close()

			store, _ := localStore(t)
			c := enabledClassifier(t, server.URL, store)

			result, err := c.Check(context.Background(), "https://img.example.com/a.jpg", 0.7)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSafe, result.Safe)

			// Once the classifier ran, every score is concrete.
			require.NotNil(t, result.Adult)
			require.NotNil(t, result.Porn)
			require.NotNil(t, result.Sexy)
			require.NotNil(t, result.Normal)
		})
	}
}

func TestCheckResolvesRelativePath(t *testing.T) {
	var gotImage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Image     string  `json:"image"`
			Threshold float64 `json:"threshold"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotImage = body.Image
		assert.Equal(t, 0.7, body.Threshold)
		fmt.Fprint(w, `{"normal":1.0}`)
	}))
	defer server.Close()

	store, _ := localStore(t)
	c := enabledClassifier(t, server.URL, store)

	_, err := c.Check(context.Background(), "uploads/pic.jpg", 0.7)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/uploads/pic.jpg", gotImage)
}

func TestCheckProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store, _ := localStore(t)
	c := enabledClassifier(t, server.URL, store)

	_, err := c.Check(context.Background(), "https://img.example.com/a.jpg", 0.7)
	assert.Error(t, err)
}

func TestProcessDisabledSkips(t *testing.T) {
	store, _ := localStore(t)
	c := NewClassifier(config.ModerationConfig{Enable: false}, store, zap.NewNop())
	p := NewPipeline(nil, c, store, 0.7, zap.NewNop())

	err := p.Process(context.Background(), KindReview, "some-id", "uploads/pic.jpg")
	assert.NoError(t, err, "disabled classifier is a skip, not a failure")
}

func TestProcessMissingFileSkipsWithoutClassifying(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"normal":1.0}`)
	}))
	defer server.Close()

	store, _ := localStore(t)
	c := enabledClassifier(t, server.URL, store)
	p := NewPipeline(nil, c, store, 0.7, zap.NewNop())

	err := p.Process(context.Background(), KindReview, "some-id", "uploads/missing.jpg")
	assert.NoError(t, err, "a file that does not exist will never appear; not retryable")
	assert.Zero(t, calls.Load(), "classifier must not be called for a missing file")
}

func TestProcessUnknownKindSkips(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"normal":1.0}`)
	}))
	defer server.Close()

	store, dir := localStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "uploads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uploads", "pic.jpg"), []byte("jpeg"), 0o644))

	c := enabledClassifier(t, server.URL, store)
	p := NewPipeline(nil, c, store, 0.7, zap.NewNop())

	// An unrecognized kind can never resolve to an entity, no matter how
	// often it is retried. Logged and dropped before the classifier runs.
	err := p.Process(context.Background(), TargetKind("bogus"), "some-id", "uploads/pic.jpg")
	assert.NoError(t, err)
	assert.Zero(t, calls.Load())
}

func TestApplyModerationIdempotent(t *testing.T) {
	flagged := models.ModerationResults{Safe: false, Reason: "Image flagged by moderation"}
	safe := models.ModerationResults{Safe: true, Reason: "Image passed moderation"}

	var entity models.Moderated
	entity.ApplyModeration(flagged)
	assert.True(t, entity.IsFlagged)

	// Reprocessing replaces the verdict wholesale; last applied wins.
	entity.ApplyModeration(safe)
	assert.False(t, entity.IsFlagged)
	require.NotNil(t, entity.ModerationResults)
	assert.True(t, entity.ModerationResults.Safe)
	assert.Equal(t, entity.IsFlagged, !entity.ModerationResults.Safe)
}
