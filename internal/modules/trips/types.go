package trips

// CreateTripDTO is the request body for creating a trip.
type CreateTripDTO struct {
	Title       string `json:"title"       binding:"required"`
	Destination string `json:"destination"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Public      *bool  `json:"public"`
}

// UpdateTripDTO is the request body for updating a trip.
type UpdateTripDTO struct {
	Title       *string `json:"title"`
	Destination *string `json:"destination"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	Public      *bool   `json:"public"`
}

// CreateCheckpointDTO adds one itinerary stop.
type CreateCheckpointDTO struct {
	Name      string  `json:"name" binding:"required"`
	Day       int     `json:"day"`
	OrderNo   int     `json:"orderNo"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CreateReviewDTO is the request body for reviewing a trip.
type CreateReviewDTO struct {
	Rating    int    `json:"rating"    binding:"required,min=1,max=5"`
	Text      string `json:"text"`
	ImagePath string `json:"imagePath"`
}

// CreateCommentDTO is the request body for commenting on a trip.
type CreateCommentDTO struct {
	Text      string  `json:"text" binding:"required"`
	ImagePath string  `json:"imagePath"`
	ParentID  *string `json:"parentId"`
}

// UploadImageDTO records a photo against a checkpoint. ImagePath is
// either a storage-relative path or an absolute external URL.
type UploadImageDTO struct {
	ImagePath string `json:"imagePath" binding:"required"`
	Caption   string `json:"caption"`
}
