package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/config"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/models"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/pagination"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/response"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/retry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	userAgent = "TripPlanner-Webhook/1.0"

	minSecretLen      = 32
	maxRetryCount     = 5
	maxTimeoutSeconds = 30
	maxErrorLen       = 200
)

// ErrSecretTooShort rejects owner-supplied secrets below the minimum
// length; anything shorter weakens the HMAC beyond usefulness.
var ErrSecretTooShort = fmt.Errorf("secret must be at least %d bytes", minSecretLen)

// Envelope is the signed payload delivered to subscribers.
type Envelope struct {
	Event     string      `json:"event"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Service handles webhook subscription CRUD and event delivery.
type Service struct {
	db     *gorm.DB
	cfg    config.WebhookConfig
	logger *zap.Logger
}

func NewService(db *gorm.DB, cfg config.WebhookConfig, logger *zap.Logger) *Service {
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 3
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 10
	}
	return &Service{db: db, cfg: cfg, logger: logger}
}

func (s *Service) List(ownerID string) ([]models.WebhookSubscriptionModel, error) {
	var items []models.WebhookSubscriptionModel
	return items, s.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&items).Error
}

func (s *Service) GetByID(ownerID, id string) (*models.WebhookSubscriptionModel, error) {
	var sub models.WebhookSubscriptionModel
	if err := s.db.First(&sub, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (s *Service) Create(ownerID string, dto *CreateSubscriptionDTO) (*models.WebhookSubscriptionModel, error) {
	events := normalizeEvents(dto.Events)
	if len(events) == 0 {
		return nil, fmt.Errorf("events is empty")
	}

	secret := strings.TrimSpace(dto.Secret)
	if secret == "" {
		generated, err := generateSecret()
		if err != nil {
			return nil, err
		}
		secret = generated
	} else if len(secret) < minSecretLen {
		return nil, ErrSecretTooShort
	}

	sub := models.WebhookSubscriptionModel{
		OwnerID:        ownerID,
		PayloadURL:     dto.PayloadURL,
		Events:         events,
		Secret:         secret,
		Active:         true,
		RetryCount:     clamp(valueOr(dto.RetryCount, s.cfg.RetryCount), 1, maxRetryCount),
		TimeoutSeconds: clamp(valueOr(dto.TimeoutSeconds, s.cfg.TimeoutSeconds), 1, maxTimeoutSeconds),
	}
	if dto.Active != nil {
		sub.Active = *dto.Active
	}
	return &sub, s.db.Create(&sub).Error
}

func (s *Service) Update(ownerID, id string, dto *UpdateSubscriptionDTO) (*models.WebhookSubscriptionModel, error) {
	sub, err := s.GetByID(ownerID, id)
	if err != nil || sub == nil {
		return sub, err
	}
	updates := map[string]interface{}{}
	if dto.PayloadURL != nil {
		updates["payload_url"] = *dto.PayloadURL
	}
	if dto.Events != nil {
		events := normalizeEvents(dto.Events)
		if len(events) == 0 {
			return nil, fmt.Errorf("events is empty")
		}
		sub.Events = events
		updates["events"] = sub.Events
	}
	if dto.Active != nil {
		updates["active"] = *dto.Active
	}
	if dto.Secret != nil {
		secret := strings.TrimSpace(*dto.Secret)
		if len(secret) < minSecretLen {
			return nil, ErrSecretTooShort
		}
		updates["secret"] = secret
	}
	if dto.RetryCount != nil {
		updates["retry_count"] = clamp(*dto.RetryCount, 1, maxRetryCount)
	}
	if dto.TimeoutSeconds != nil {
		updates["timeout_seconds"] = clamp(*dto.TimeoutSeconds, 1, maxTimeoutSeconds)
	}
	return sub, s.db.Model(sub).Updates(updates).Error
}

func (s *Service) Delete(ownerID, id string) error {
	return s.db.Where("owner_id = ?", ownerID).Delete(&models.WebhookSubscriptionModel{}, "id = ?", id).Error
}

// Trigger delivers an event to every matching active subscription,
// sequentially, and returns the per-subscription outcomes. It never
// returns an error: a failed delivery is degraded service for that
// subscriber, recorded in telemetry, and must not fail the caller's
// business transaction or block delivery to the remaining subscribers.
func (s *Service) Trigger(ctx context.Context, event string, payload interface{}, ownerID ...string) []DeliveryOutcome {
	tx := s.db.Where("active = ?", true)
	if len(ownerID) > 0 && ownerID[0] != "" {
		tx = tx.Where("owner_id = ?", ownerID[0])
	}
	var subs []models.WebhookSubscriptionModel
	if err := tx.Find(&subs).Error; err != nil {
		s.logger.Error("webhook: subscription lookup failed", zap.String("event", event), zap.Error(err))
		return nil
	}

	outcomes := make([]DeliveryOutcome, 0, len(subs))
	for _, sub := range subs {
		if !containsEvent(sub.Events, event) {
			continue
		}
		outcomes = append(outcomes, s.deliver(ctx, sub, event, payload))
	}
	return outcomes
}

func (s *Service) deliver(ctx context.Context, sub models.WebhookSubscriptionModel, event string, payload interface{}) DeliveryOutcome {
	now := time.Now()
	s.db.Model(&sub).Update("last_triggered_at", now)

	body, err := json.Marshal(Envelope{
		Event:     strings.ToUpper(strings.TrimSpace(event)),
		Timestamp: now.UnixMilli(),
		Data:      payload,
	})
	if err != nil {
		return s.record(sub, event, nil, DeliveryOutcome{
			SubscriptionID: sub.ID,
			Error:          "encode payload: " + err.Error(),
		})
	}

	signature := Sign(sub.Secret, body)

	timeout := clamp(sub.TimeoutSeconds, 1, maxTimeoutSeconds)
	if sub.TimeoutSeconds <= 0 {
		timeout = s.cfg.TimeoutSeconds
	}
	tries := clamp(sub.RetryCount, 1, maxRetryCount)
	if sub.RetryCount <= 0 {
		tries = s.cfg.RetryCount
	}
	client := &http.Client{Timeout: time.Duration(timeout) * time.Second}

	outcome := DeliveryOutcome{SubscriptionID: sub.ID}
	retryErr := retry.Do(ctx, retry.Policy{Tries: tries, Backoff: time.Second}, func(ctx context.Context) error {
		outcome.Attempts++

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.PayloadURL, bytes.NewReader(body))
		if err != nil {
			return retry.Stop(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("X-Webhook-Signature", signature)
		req.Header.Set("X-Webhook-Event", event)

		resp, err := client.Do(req)
		if err != nil {
			outcome.Status = 0
			return err
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		outcome.Status = resp.StatusCode
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(respBody)), maxErrorLen))
		}
		return nil
	})

	outcome.Success = retryErr == nil
	if retryErr != nil {
		outcome.Error = truncate(retryErr.Error(), maxErrorLen)
	}
	return s.record(sub, event, body, outcome)
}

// record persists telemetry and the delivery audit row for one outcome.
func (s *Service) record(sub models.WebhookSubscriptionModel, event string, body []byte, outcome DeliveryOutcome) DeliveryOutcome {
	now := time.Now()
	updates := map[string]interface{}{}
	if outcome.Success {
		updates["last_success_at"] = now
		updates["last_error"] = ""
	} else {
		updates["last_failure_at"] = now
		updates["last_error"] = outcome.Error
	}
	if err := s.db.Model(&sub).Updates(updates).Error; err != nil {
		s.logger.Warn("webhook: telemetry update failed", zap.String("subscription_id", sub.ID), zap.Error(err))
	}

	delivery := models.WebhookDeliveryModel{
		SubscriptionID: sub.ID,
		Event:          strings.ToUpper(strings.TrimSpace(event)),
		Payload:        string(body),
		Success:        outcome.Success,
		Status:         outcome.Status,
		Attempts:       outcome.Attempts,
		Error:          outcome.Error,
		Timestamp:      now,
	}
	if err := s.db.Create(&delivery).Error; err != nil {
		s.logger.Warn("webhook: delivery log failed", zap.String("subscription_id", sub.ID), zap.Error(err))
	}

	if !outcome.Success {
		s.logger.Warn("webhook delivery failed",
			zap.String("subscription_id", sub.ID),
			zap.String("event", event),
			zap.Int("status", outcome.Status),
			zap.Int("attempts", outcome.Attempts),
			zap.String("error", outcome.Error),
		)
	}
	return outcome
}

// TestFire delivers a sample payload to one subscription so its owner can
// verify the endpoint and signature handling.
func (s *Service) TestFire(ctx context.Context, ownerID, id string) (*DeliveryOutcome, error) {
	sub, err := s.GetByID(ownerID, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("subscription not found")
	}
	event := EventTripUpdate
	if len(sub.Events) > 0 {
		event = sub.Events[0]
	}
	outcome := s.deliver(ctx, *sub, event, map[string]interface{}{"test": true})
	return &outcome, nil
}

func (s *Service) ListDeliveries(q pagination.Query, ownerID, subscriptionID string) ([]models.WebhookDeliveryModel, response.Pagination, error) {
	sub, err := s.GetByID(ownerID, subscriptionID)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	if sub == nil {
		return nil, response.Pagination{}, gorm.ErrRecordNotFound
	}
	tx := s.db.Model(&models.WebhookDeliveryModel{}).
		Where("subscription_id = ?", subscriptionID).
		Order("timestamp DESC")
	var items []models.WebhookDeliveryModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

// Sign computes the hex HMAC-SHA256 of payload under secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches payload under secret.
// Comparison is constant time.
func VerifySignature(secret string, payload []byte, signature string) bool {
	expected := Sign(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyIncoming validates a callback signed with a subscription's secret.
func (s *Service) VerifyIncoming(sub *models.WebhookSubscriptionModel, signature string, payload []byte) bool {
	return VerifySignature(sub.Secret, payload, signature)
}

// generateSecret returns a 32-byte random secret, hex encoded.
func generateSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// normalizeEvents deduplicates events, uppercases them, and validates each
// against the accepted set. The special value "all" short-circuits.
func normalizeEvents(events []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(events))
	for _, event := range events {
		next := strings.TrimSpace(event)
		if next == "" {
			continue
		}
		if strings.EqualFold(next, "all") {
			return []string{"all"}
		}
		next = strings.ToUpper(next)
		if _, ok := acceptedEvents[next]; !ok {
			continue
		}
		if _, ok := seen[next]; ok {
			continue
		}
		seen[next] = struct{}{}
		out = append(out, next)
	}
	return out
}

func containsEvent(events []string, event string) bool {
	event = strings.ToUpper(strings.TrimSpace(event))
	for _, item := range events {
		next := strings.ToUpper(strings.TrimSpace(item))
		if next == "ALL" || next == event {
			return true
		}
	}
	return false
}

func toResponse(sub *models.WebhookSubscriptionModel) subscriptionResponse {
	events := sub.Events
	if events == nil {
		events = []string{}
	}
	return subscriptionResponse{
		ID:              sub.ID,
		PayloadURL:      sub.PayloadURL,
		Events:          events,
		Active:          sub.Active,
		RetryCount:      sub.RetryCount,
		TimeoutSeconds:  sub.TimeoutSeconds,
		LastTriggeredAt: sub.LastTriggeredAt,
		LastSuccessAt:   sub.LastSuccessAt,
		LastFailureAt:   sub.LastFailureAt,
		LastError:       sub.LastError,
		Created:         sub.CreatedAt,
		Modified:        sub.UpdatedAt,
	}
}

func valueOr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
