package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/config"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/models"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/storage"
	"go.uber.org/zap"
)

// DisabledReason is the verdict reason used when the classifier is off.
// It marks a sentinel result: Safe is true but no score was ever computed,
// which is distinct from an evaluated-and-safe verdict.
const DisabledReason = "Content moderation disabled"

// Classifier wraps the third-party image safety API.
type Classifier struct {
	cfg        config.ModerationConfig
	store      storage.Storage
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClassifier(cfg config.ModerationConfig, store storage.Storage, logger *zap.Logger) *Classifier {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Classifier{
		cfg:        cfg,
		store:      store,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Enabled reports whether the classifier is configured to run.
func (c *Classifier) Enabled() bool {
	return c.cfg.Enable && c.cfg.APIURL != ""
}

// Disabled returns the sentinel verdict for a classifier that never ran.
func Disabled() models.ModerationResults {
	return models.ModerationResults{Safe: true, Reason: DisabledReason}
}

// isExternalURL distinguishes absolute image URLs from storage-relative
// paths. Only the latter need an existence check before classification.
func isExternalURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

type classifierResponse struct {
	Safe   *bool    `json:"safe"`
	Reason string   `json:"reason"`
	Adult  *float64 `json:"adult"`
	Porn   *float64 `json:"porn"`
	Sexy   *float64 `json:"sexy"`
	Normal *float64 `json:"normal"`
}

// Check classifies one image reference. imageRef is either an absolute
// http(s) URL or a storage-relative path that is resolved to its public
// URL before being sent upstream. Transport and provider failures are
// returned as errors so callers can retry.
func (c *Classifier) Check(ctx context.Context, imageRef string, threshold float64) (models.ModerationResults, error) {
	if !c.Enabled() {
		return Disabled(), nil
	}

	imageURL := imageRef
	if !isExternalURL(imageRef) {
		imageURL = c.store.PublicURL(imageRef)
	}

	body, err := json.Marshal(map[string]interface{}{
		"image":     imageURL,
		"threshold": threshold,
	})
	if err != nil {
		return models.ModerationResults{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return models.ModerationResults{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Secret-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.ModerationResults{}, fmt.Errorf("moderation request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.ModerationResults{}, fmt.Errorf("moderation service returned status %d", resp.StatusCode)
	}

	var parsed classifierResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return models.ModerationResults{}, fmt.Errorf("moderation response: %w", err)
	}

	return c.verdict(parsed), nil
}

// verdict normalizes a provider response into a persisted result. Once the
// classifier has actually run, every score is concrete: absent scores
// default to 0.0 (1.0 for normal).
func (c *Classifier) verdict(parsed classifierResponse) models.ModerationResults {
	adult := scoreOr(parsed.Adult, 0)
	porn := scoreOr(parsed.Porn, 0)
	sexy := scoreOr(parsed.Sexy, 0)
	normal := scoreOr(parsed.Normal, 1)

	// The provider's own safe flag wins when present; the ratio rule is
	// the fallback for providers that only return raw scores.
	safe := *normal > max3(*adult, *porn, *sexy)
	if parsed.Safe != nil {
		safe = *parsed.Safe
	}

	reason := parsed.Reason
	if reason == "" {
		if safe {
			reason = "Image passed moderation"
		} else {
			reason = "Image flagged by moderation"
		}
	}

	return models.ModerationResults{
		Safe:   safe,
		Reason: reason,
		Adult:  adult,
		Porn:   porn,
		Sexy:   sexy,
		Normal: normal,
	}
}

func scoreOr(v *float64, fallback float64) *float64 {
	if v != nil {
		return v
	}
	return &fallback
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
