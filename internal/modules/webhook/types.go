package webhook

import "time"

// CreateSubscriptionDTO is the request body for registering a webhook.
type CreateSubscriptionDTO struct {
	PayloadURL     string   `json:"payloadUrl" binding:"required,url"`
	Events         []string `json:"events"     binding:"required,min=1"`
	Active         *bool    `json:"active"`
	Secret         string   `json:"secret"`
	RetryCount     *int     `json:"retryCount"`
	TimeoutSeconds *int     `json:"timeoutSeconds"`
}

// UpdateSubscriptionDTO is the request body for updating a webhook.
type UpdateSubscriptionDTO struct {
	PayloadURL     *string  `json:"payloadUrl"`
	Events         []string `json:"events"`
	Active         *bool    `json:"active"`
	Secret         *string  `json:"secret"`
	RetryCount     *int     `json:"retryCount"`
	TimeoutSeconds *int     `json:"timeoutSeconds"`
}

// subscriptionResponse is the outbound representation (no secret).
type subscriptionResponse struct {
	ID              string     `json:"id"`
	PayloadURL      string     `json:"payloadUrl"`
	Events          []string   `json:"events"`
	Active          bool       `json:"active"`
	RetryCount      int        `json:"retryCount"`
	TimeoutSeconds  int        `json:"timeoutSeconds"`
	LastTriggeredAt *time.Time `json:"lastTriggeredAt"`
	LastSuccessAt   *time.Time `json:"lastSuccessAt"`
	LastFailureAt   *time.Time `json:"lastFailureAt"`
	LastError       string     `json:"lastError"`
	Created         time.Time  `json:"created"`
	Modified        time.Time  `json:"modified"`
}

// createdResponse additionally carries the secret. Registration is the
// only time it is ever disclosed; list and get omit it.
type createdResponse struct {
	subscriptionResponse
	Secret string `json:"secret"`
}

// DeliveryOutcome is the per-subscription result of one Trigger call.
type DeliveryOutcome struct {
	SubscriptionID string `json:"subscription_id"`
	Success        bool   `json:"success"`
	Status         int    `json:"status"`
	Attempts       int    `json:"attempts"`
	Error          string `json:"error,omitempty"`
}

// Supported event names.
const (
	EventReviewCreate          = "REVIEW_CREATE"
	EventReviewDelete          = "REVIEW_DELETE"
	EventCommentCreate         = "COMMENT_CREATE"
	EventCommentDelete         = "COMMENT_DELETE"
	EventCheckpointImageUpload = "CHECKPOINT_IMAGE_UPLOAD"
	EventTripCreate            = "TRIP_CREATE"
	EventTripUpdate            = "TRIP_UPDATE"
	EventTripDelete            = "TRIP_DELETE"
	EventModerationFlagged     = "MODERATION_FLAGGED"
)

// eventEnum is the canonical list of supported event names.
var eventEnum = []string{
	EventReviewCreate,
	EventReviewDelete,
	EventCommentCreate,
	EventCommentDelete,
	EventCheckpointImageUpload,
	EventTripCreate,
	EventTripUpdate,
	EventTripDelete,
	EventModerationFlagged,
}

// acceptedEvents is a set built from eventEnum for O(1) lookup.
var acceptedEvents = func() map[string]struct{} {
	out := make(map[string]struct{}, len(eventEnum))
	for _, event := range eventEnum {
		out[event] = struct{}{}
	}
	return out
}()
