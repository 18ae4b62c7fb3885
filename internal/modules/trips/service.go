package trips

import (
	"context"
	"errors"
	"time"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/models"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/modules/moderation"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/modules/webhook"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("trip not found")

// Service owns trip CRUD and the side effects of content creation:
// moderation jobs for uploaded imagery and webhook events for
// subscribers. Side effects are asynchronous and never fail the
// originating request.
type Service struct {
	db     *gorm.DB
	queue  *taskqueue.Service
	hooks  *webhook.Service
	logger *zap.Logger
}

func NewService(db *gorm.DB, queue *taskqueue.Service, hooks *webhook.Service, logger *zap.Logger) *Service {
	return &Service{db: db, queue: queue, hooks: hooks, logger: logger}
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func (s *Service) ListTrips(ownerID string) ([]models.TripModel, error) {
	var trips []models.TripModel
	return trips, s.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&trips).Error
}

// GetTrip loads one trip with its itinerary. Public trips are visible to
// anyone; private trips only to their owner.
func (s *Service) GetTrip(viewerID, id string) (*models.TripModel, error) {
	var trip models.TripModel
	err := s.db.Preload("Checkpoints").Preload("Checkpoints.Images").First(&trip, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !trip.Public && trip.OwnerID != viewerID {
		return nil, ErrNotFound
	}
	return &trip, nil
}

func (s *Service) CreateTrip(ctx context.Context, ownerID string, dto *CreateTripDTO) (*models.TripModel, error) {
	trip := models.TripModel{
		OwnerID:     ownerID,
		Title:       dto.Title,
		Destination: dto.Destination,
		StartDate:   parseDate(dto.StartDate),
		EndDate:     parseDate(dto.EndDate),
	}
	if dto.Public != nil {
		trip.Public = *dto.Public
	}
	if err := s.db.Create(&trip).Error; err != nil {
		return nil, err
	}
	s.hooks.Trigger(ctx, webhook.EventTripCreate, &trip, ownerID)
	return &trip, nil
}

func (s *Service) UpdateTrip(ctx context.Context, ownerID, id string, dto *UpdateTripDTO) (*models.TripModel, error) {
	var trip models.TripModel
	err := s.db.First(&trip, "id = ? AND owner_id = ?", id, ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Destination != nil {
		updates["destination"] = *dto.Destination
	}
	if dto.StartDate != nil {
		updates["start_date"] = parseDate(*dto.StartDate)
	}
	if dto.EndDate != nil {
		updates["end_date"] = parseDate(*dto.EndDate)
	}
	if dto.Public != nil {
		updates["public"] = *dto.Public
	}
	if err := s.db.Model(&trip).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.hooks.Trigger(ctx, webhook.EventTripUpdate, &trip, ownerID)
	return &trip, nil
}

func (s *Service) DeleteTrip(ctx context.Context, ownerID, id string) error {
	res := s.db.Where("owner_id = ?", ownerID).Delete(&models.TripModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.hooks.Trigger(ctx, webhook.EventTripDelete, map[string]string{"trip_id": id}, ownerID)
	return nil
}

func (s *Service) AddCheckpoint(ownerID, tripID string, dto *CreateCheckpointDTO) (*models.CheckpointModel, error) {
	if err := s.ownedTrip(ownerID, tripID); err != nil {
		return nil, err
	}
	cp := models.CheckpointModel{
		TripID:    tripID,
		Name:      dto.Name,
		Day:       dto.Day,
		OrderNo:   dto.OrderNo,
		Latitude:  dto.Latitude,
		Longitude: dto.Longitude,
	}
	if cp.Day < 1 {
		cp.Day = 1
	}
	return &cp, s.db.Create(&cp).Error
}

// CreateReview stores a review, schedules moderation for its image and
// notifies subscribers.
func (s *Service) CreateReview(ctx context.Context, authorID, tripID string, dto *CreateReviewDTO) (*models.ReviewModel, error) {
	if err := s.tripExists(tripID); err != nil {
		return nil, err
	}
	review := models.ReviewModel{
		TripID:    tripID,
		AuthorID:  authorID,
		Rating:    dto.Rating,
		Text:      dto.Text,
		ImagePath: dto.ImagePath,
	}
	if err := s.db.Create(&review).Error; err != nil {
		return nil, err
	}

	s.scheduleModeration(ctx, moderation.KindReview, review.ID, review.ImagePath)
	s.hooks.Trigger(ctx, webhook.EventReviewCreate, &review)
	return &review, nil
}

// CreateComment stores a comment, schedules moderation for its image and
// notifies subscribers.
func (s *Service) CreateComment(ctx context.Context, authorID, tripID string, dto *CreateCommentDTO) (*models.TripCommentModel, error) {
	if err := s.tripExists(tripID); err != nil {
		return nil, err
	}
	comment := models.TripCommentModel{
		TripID:    tripID,
		AuthorID:  authorID,
		Text:      dto.Text,
		ImagePath: dto.ImagePath,
		ParentID:  dto.ParentID,
	}
	if err := s.db.Create(&comment).Error; err != nil {
		return nil, err
	}

	s.scheduleModeration(ctx, moderation.KindComment, comment.ID, comment.ImagePath)
	s.hooks.Trigger(ctx, webhook.EventCommentCreate, &comment)
	return &comment, nil
}

// UploadCheckpointImage records a photo and schedules its moderation.
func (s *Service) UploadCheckpointImage(ctx context.Context, uploaderID, tripID, checkpointID string, dto *UploadImageDTO) (*models.CheckpointImageModel, error) {
	if err := s.ownedTrip(uploaderID, tripID); err != nil {
		return nil, err
	}
	var cp models.CheckpointModel
	if err := s.db.First(&cp, "id = ? AND trip_id = ?", checkpointID, tripID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	image := models.CheckpointImageModel{
		CheckpointID: checkpointID,
		UploaderID:   uploaderID,
		ImagePath:    dto.ImagePath,
		Caption:      dto.Caption,
	}
	if err := s.db.Create(&image).Error; err != nil {
		return nil, err
	}

	s.scheduleModeration(ctx, moderation.KindCheckpointImage, image.ID, image.ImagePath)
	s.hooks.Trigger(ctx, webhook.EventCheckpointImageUpload, &image)
	return &image, nil
}

func (s *Service) ListReviews(tripID string) ([]models.ReviewModel, error) {
	var reviews []models.ReviewModel
	return reviews, s.db.Where("trip_id = ?", tripID).Order("created_at DESC").Find(&reviews).Error
}

func (s *Service) ListComments(tripID string) ([]models.TripCommentModel, error) {
	var comments []models.TripCommentModel
	return comments, s.db.Where("trip_id = ?", tripID).Order("created_at ASC").Find(&comments).Error
}

func (s *Service) DeleteReview(ctx context.Context, authorID, id string) error {
	res := s.db.Where("author_id = ?", authorID).Delete(&models.ReviewModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.hooks.Trigger(ctx, webhook.EventReviewDelete, map[string]string{"review_id": id})
	return nil
}

func (s *Service) DeleteComment(ctx context.Context, authorID, id string) error {
	res := s.db.Where("author_id = ?", authorID).Delete(&models.TripCommentModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.hooks.Trigger(ctx, webhook.EventCommentDelete, map[string]string{"comment_id": id})
	return nil
}

// scheduleModeration enqueues a moderation check when the content carries
// an image. Enqueue failures are logged, not surfaced: the content is
// already saved and the queue is at-least-once, not exactly-now.
func (s *Service) scheduleModeration(ctx context.Context, kind moderation.TargetKind, id, imageRef string) {
	if imageRef == "" {
		return
	}
	if _, err := moderation.Enqueue(ctx, s.queue, kind, id, imageRef); err != nil {
		s.logger.Error("failed to enqueue moderation",
			zap.String("kind", string(kind)),
			zap.String("id", id),
			zap.Error(err),
		)
	}
}

func (s *Service) ownedTrip(ownerID, tripID string) error {
	var count int64
	if err := s.db.Model(&models.TripModel{}).Where("id = ? AND owner_id = ?", tripID, ownerID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) tripExists(tripID string) error {
	var count int64
	if err := s.db.Model(&models.TripModel{}).Where("id = ?", tripID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
