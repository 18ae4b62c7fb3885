package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/naver-ai-trip/backend-trip-sub001/internal/models"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/retry"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/taskqueue"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TaskCheck is the queue job type handled by the pipeline.
const TaskCheck = "moderation.check"

// TargetKind enumerates every entity kind the pipeline can moderate.
// The set is closed: adding a moderated entity means adding a variant
// here and a case in resolveTarget.
type TargetKind string

const (
	KindReview          TargetKind = "review"
	KindComment         TargetKind = "comment"
	KindCheckpointImage TargetKind = "checkpoint_image"
)

// CheckPayload is the queued job payload.
type CheckPayload struct {
	Kind     TargetKind `json:"kind"`
	ID       string     `json:"id"`
	ImageRef string     `json:"image_ref"`
}

// target is one resolvable moderated entity. apply persists both
// moderation fields in a single UPDATE so the entity is never left
// half-written.
type target interface {
	apply(db *gorm.DB, results models.ModerationResults) error
}

type reviewTarget struct{ id string }

func (t reviewTarget) apply(db *gorm.DB, results models.ModerationResults) error {
	var review models.ReviewModel
	if err := db.First(&review, "id = ?", t.id).Error; err != nil {
		return err
	}
	review.ApplyModeration(results)
	return db.Model(&review).Select("is_flagged", "moderation_results").Updates(&review).Error
}

type commentTarget struct{ id string }

func (t commentTarget) apply(db *gorm.DB, results models.ModerationResults) error {
	var comment models.TripCommentModel
	if err := db.First(&comment, "id = ?", t.id).Error; err != nil {
		return err
	}
	comment.ApplyModeration(results)
	return db.Model(&comment).Select("is_flagged", "moderation_results").Updates(&comment).Error
}

type checkpointImageTarget struct{ id string }

func (t checkpointImageTarget) apply(db *gorm.DB, results models.ModerationResults) error {
	var image models.CheckpointImageModel
	if err := db.First(&image, "id = ?", t.id).Error; err != nil {
		return err
	}
	image.ApplyModeration(results)
	return db.Model(&image).Select("is_flagged", "moderation_results").Updates(&image).Error
}

func resolveTarget(kind TargetKind, id string) (target, error) {
	switch kind {
	case KindReview:
		return reviewTarget{id: id}, nil
	case KindComment:
		return commentTarget{id: id}, nil
	case KindCheckpointImage:
		return checkpointImageTarget{id: id}, nil
	default:
		return nil, fmt.Errorf("unknown moderation target kind %q", kind)
	}
}

// Pipeline resolves a queued moderation job to an entity, runs the
// classifier and persists the verdict.
type Pipeline struct {
	db         *gorm.DB
	classifier *Classifier
	store      storage.Storage
	threshold  float64
	logger     *zap.Logger

	// OnFlagged, when set, is invoked after a verdict flags an entity.
	// Used to fan the event out to webhook subscribers.
	OnFlagged func(ctx context.Context, kind TargetKind, id string, results models.ModerationResults)
}

func NewPipeline(db *gorm.DB, classifier *Classifier, store storage.Storage, threshold float64, logger *zap.Logger) *Pipeline {
	if threshold <= 0 {
		threshold = 0.7
	}
	return &Pipeline{db: db, classifier: classifier, store: store, threshold: threshold, logger: logger}
}

// Register binds the pipeline to the queue. Permanent failures are logged
// without touching the entity: an unmoderated record stays unflagged.
func (p *Pipeline) Register(queue *taskqueue.Service) {
	queue.Register(TaskCheck, p.handle, retry.Policy{Tries: 3, Backoff: 5 * time.Second}, func(task *taskqueue.Task, err error) {
		p.logger.Error("moderation permanently failed",
			zap.String("task_id", task.ID),
			zap.Int("attempts", task.Attempts),
			zap.Error(err),
		)
	})
}

// Enqueue schedules a moderation check for one entity.
func Enqueue(ctx context.Context, queue *taskqueue.Service, kind TargetKind, id, imageRef string) (*taskqueue.Task, error) {
	return queue.Enqueue(ctx, TaskCheck, CheckPayload{Kind: kind, ID: id, ImageRef: imageRef})
}

func (p *Pipeline) handle(ctx context.Context, payload json.RawMessage) error {
	var job CheckPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		return retry.Stop(fmt.Errorf("decode moderation payload: %w", err))
	}
	return p.Process(ctx, job.Kind, job.ID, job.ImageRef)
}

// Process runs one moderation check end to end. Deterministic dead ends
// (classifier disabled, missing local file, unknown kind, vanished entity)
// are logged skips, not failures: retrying cannot change them. Only
// transient classifier and database errors propagate so the queue's
// policy applies.
func (p *Pipeline) Process(ctx context.Context, kind TargetKind, id, imageRef string) error {
	if !p.classifier.Enabled() {
		p.logger.Info("moderation skipped: classifier disabled",
			zap.String("kind", string(kind)),
			zap.String("id", id),
		)
		return nil
	}

	if !isExternalURL(imageRef) {
		exists, err := p.store.Exists(ctx, imageRef)
		if err != nil {
			return fmt.Errorf("storage check for %q: %w", imageRef, err)
		}
		if !exists {
			p.logger.Error("moderation skipped: image not found in storage",
				zap.String("kind", string(kind)),
				zap.String("id", id),
				zap.String("image_ref", imageRef),
			)
			return nil
		}
	}

	tgt, err := resolveTarget(kind, id)
	if err != nil {
		p.logger.Error("moderation skipped: unresolvable target",
			zap.String("kind", string(kind)),
			zap.String("id", id),
			zap.Error(err),
		)
		return nil
	}

	results, err := p.classifier.Check(ctx, imageRef, p.threshold)
	if err != nil {
		return err
	}

	if err := tgt.apply(p.db, results); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.logger.Warn("moderation skipped: target not found",
				zap.String("kind", string(kind)),
				zap.String("id", id),
			)
			return nil
		}
		return fmt.Errorf("persist moderation verdict: %w", err)
	}

	p.logger.Info("moderation applied",
		zap.String("kind", string(kind)),
		zap.String("id", id),
		zap.Bool("safe", results.Safe),
	)
	if !results.Safe && p.OnFlagged != nil {
		p.OnFlagged(ctx, kind, id, results)
	}
	return nil
}
