package models

import "time"

// TripModel is a planned trip with an itinerary of checkpoints.
type TripModel struct {
	Base
	OwnerID     string            `json:"owner_id"    gorm:"index;not null"`
	Title       string            `json:"title"       gorm:"not null"`
	Destination string            `json:"destination"`
	StartDate   *time.Time        `json:"start_date"`
	EndDate     *time.Time        `json:"end_date"`
	Public      bool              `json:"public"      gorm:"default:false"`
	Checkpoints []CheckpointModel `json:"checkpoints,omitempty" gorm:"foreignKey:TripID"`
}

func (TripModel) TableName() string { return "trips" }

// CheckpointModel is a single itinerary stop within a trip.
type CheckpointModel struct {
	Base
	TripID    string  `json:"trip_id"   gorm:"index;not null"`
	Name      string  `json:"name"      gorm:"not null"`
	Day       int     `json:"day"       gorm:"default:1"`
	OrderNo   int     `json:"order_no"  gorm:"default:0"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Completed bool    `json:"completed" gorm:"default:false"`

	Images []CheckpointImageModel `json:"images,omitempty" gorm:"foreignKey:CheckpointID"`
}

func (CheckpointModel) TableName() string { return "checkpoints" }

// CheckpointImageModel is a photo uploaded against a checkpoint.
// ImagePath is either a storage-relative path or an absolute external URL.
type CheckpointImageModel struct {
	Base
	Moderated
	CheckpointID string `json:"checkpoint_id" gorm:"index;not null"`
	UploaderID   string `json:"uploader_id"   gorm:"index"`
	ImagePath    string `json:"image_path"    gorm:"not null"`
	Caption      string `json:"caption"`
}

func (CheckpointImageModel) TableName() string { return "checkpoint_images" }
