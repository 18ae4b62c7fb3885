package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is the base model for all entities.
type Base struct {
	ID        string         `json:"id"       gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time      `json:"created"`
	UpdatedAt time.Time      `json:"modified"`
	DeletedAt gorm.DeletedAt `json:"-"        gorm:"index"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// ModerationResults is the classifier verdict persisted on moderated
// entities. Score pointers are nil when moderation never ran or the
// service was disabled; once the classifier has run they are always set.
type ModerationResults struct {
	Safe   bool     `json:"safe"`
	Reason string   `json:"reason"`
	Adult  *float64 `json:"adult"`
	Porn   *float64 `json:"porn"`
	Sexy   *float64 `json:"sexy"`
	Normal *float64 `json:"normal"`
}

// Moderated carries the two fields the moderation pipeline writes.
// Invariant: IsFlagged == !Results.Safe whenever Results is non-nil.
type Moderated struct {
	IsFlagged         bool               `json:"is_flagged"         gorm:"default:false;index"`
	ModerationResults *ModerationResults `json:"moderation_results" gorm:"serializer:json"`
}

// ApplyModeration overwrites the moderation verdict. Reprocessing the same
// entity simply replaces the prior verdict (last applied wins).
func (m *Moderated) ApplyModeration(results ModerationResults) {
	m.IsFlagged = !results.Safe
	m.ModerationResults = &results
}
