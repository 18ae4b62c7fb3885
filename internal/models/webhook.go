package models

import "time"

// WebhookSubscriptionModel defines an outbound webhook endpoint owned by a
// user. Subscriptions are never deleted by the system itself; only the
// owner removes them.
type WebhookSubscriptionModel struct {
	Base
	OwnerID        string   `json:"owner_id"        gorm:"index;not null"`
	PayloadURL     string   `json:"payload_url"     gorm:"not null"`
	Events         []string `json:"events"          gorm:"serializer:json"`
	Active         bool     `json:"active"          gorm:"default:true"`
	Secret         string   `json:"-"               gorm:"not null"`
	RetryCount     int      `json:"retry_count"     gorm:"default:3"`
	TimeoutSeconds int      `json:"timeout_seconds" gorm:"default:10"`

	// Delivery telemetry, written only by the dispatcher. Diagnostic, not
	// transactional: concurrent triggers may interleave these writes.
	LastTriggeredAt *time.Time `json:"last_triggered_at"`
	LastSuccessAt   *time.Time `json:"last_success_at"`
	LastFailureAt   *time.Time `json:"last_failure_at"`
	LastError       string     `json:"last_error"       gorm:"type:varchar(512)"`

	Deliveries []WebhookDeliveryModel `json:"deliveries,omitempty" gorm:"foreignKey:SubscriptionID"`
}

func (WebhookSubscriptionModel) TableName() string { return "webhook_subscriptions" }

// WebhookDeliveryModel is the audit trail of webhook delivery attempts.
type WebhookDeliveryModel struct {
	Base
	SubscriptionID string    `json:"subscription_id" gorm:"index;not null"`
	Event          string    `json:"event"           gorm:"not null"`
	Payload        string    `json:"payload"         gorm:"type:text"`
	Success        bool      `json:"success"`
	Status         int       `json:"status"`
	Attempts       int       `json:"attempts"`
	Error          string    `json:"error"           gorm:"type:varchar(512)"`
	Timestamp      time.Time `json:"timestamp"       gorm:"index"`
}

func (WebhookDeliveryModel) TableName() string { return "webhook_deliveries" }
