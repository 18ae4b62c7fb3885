package models

// ReviewModel is a trip review, optionally carrying a cover image that
// goes through the moderation pipeline.
type ReviewModel struct {
	Base
	Moderated
	TripID    string `json:"trip_id"    gorm:"index;not null"`
	AuthorID  string `json:"author_id"  gorm:"index;not null"`
	Rating    int    `json:"rating"     gorm:"not null"`
	Text      string `json:"text"       gorm:"type:text"`
	ImagePath string `json:"image_path"`
}

func (ReviewModel) TableName() string { return "reviews" }

// TripCommentModel is a threaded comment on a trip.
type TripCommentModel struct {
	Base
	Moderated
	TripID    string  `json:"trip_id"   gorm:"index;not null"`
	AuthorID  string  `json:"author_id" gorm:"index;not null"`
	Text      string  `json:"text"      gorm:"type:text;not null"`
	ImagePath string  `json:"image_path"`
	ParentID  *string `json:"parent_id" gorm:"index"`
}

func (TripCommentModel) TableName() string { return "trip_comments" }
