package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	redisc "github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/redis"
	"github.com/naver-ai-trip/backend-trip-sub001/internal/pkg/retry"
	"go.uber.org/zap"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task is a unit of background work stored in Redis.
type Task struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Status    TaskStatus      `json:"status"`
	Attempts  int             `json:"attempts"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const (
	keyPrefix = "trip:task:"
	keyIndex  = "trip:tasks:index" // sorted set: score=created_at, member=task_id
	keyQueue  = "trip:tasks:queue" // list consumed by workers
	taskTTL   = 7 * 24 * time.Hour // task records expire after 7 days
)

// HandlerFunc executes one task. Returning an error triggers the job type's
// retry policy; wrap with retry.Stop for deterministic failures that must
// not be retried.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// FailureHook runs once after a task has exhausted its retry policy.
type FailureHook func(task *Task, err error)

type handlerEntry struct {
	fn     HandlerFunc
	policy retry.Policy
	onFail FailureHook
}

// Service is a Redis-backed at-least-once job queue with a worker pool.
type Service struct {
	rc     *redisc.Client
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[string]handlerEntry

	workers       int
	defaultPolicy retry.Policy
}

// NewService creates the queue service. workers is the pool size used by Run.
func NewService(rc *redisc.Client, logger *zap.Logger, workers int, defaultPolicy retry.Policy) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		rc:            rc,
		logger:        logger,
		handlers:      make(map[string]handlerEntry),
		workers:       workers,
		defaultPolicy: defaultPolicy.Normalize(),
	}
}

func (s *Service) taskKey(id string) string { return keyPrefix + id }

// Register binds a handler to a task type with the given retry policy.
// A zero policy falls back to the queue-wide default. onFail may be nil.
func (s *Service) Register(taskType string, fn HandlerFunc, policy retry.Policy, onFail FailureHook) {
	if policy.Tries == 0 {
		policy = s.defaultPolicy
	}
	s.mu.Lock()
	s.handlers[taskType] = handlerEntry{fn: fn, policy: policy.Normalize(), onFail: onFail}
	s.mu.Unlock()
}

// Enqueue creates a task record and pushes it onto the work queue.
// It never blocks on task execution.
func (s *Service) Enqueue(ctx context.Context, taskType string, payload interface{}) (*Task, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	task := &Task{
		ID:        uuid.New().String(),
		Type:      taskType,
		Payload:   payloadBytes,
		Status:    TaskPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	data, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}

	pipe := s.rc.Raw().TxPipeline()
	pipe.Set(ctx, s.taskKey(task.ID), data, taskTTL)
	pipe.ZAdd(ctx, keyIndex, redis.Z{
		Score:  float64(task.CreatedAt.UnixMilli()),
		Member: task.ID,
	})
	pipe.LPush(ctx, keyQueue, task.ID)
	_, err = pipe.Exec(ctx)
	return task, err
}

// GetByID retrieves a task record by its ID.
func (s *Service) GetByID(ctx context.Context, id string) (*Task, error) {
	data, err := s.rc.Raw().Get(ctx, s.taskKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var task Task
	return &task, json.Unmarshal(data, &task)
}

// Run starts the worker pool and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.workerLoop(ctx)
		}()
	}
	wg.Wait()
}

func (s *Service) workerLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		res, err := s.rc.Raw().BRPop(ctx, 2*time.Second, keyQueue).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("taskqueue: pop failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		// BRPop returns [key, value].
		if len(res) == 2 {
			s.execute(ctx, res[1])
		}
	}
}

// execute runs one task through its handler's retry policy. At-least-once:
// the handler may run multiple times, so handlers must be idempotent.
func (s *Service) execute(ctx context.Context, id string) {
	task, err := s.GetByID(ctx, id)
	if err != nil || task == nil {
		s.logger.Warn("taskqueue: task record missing", zap.String("task_id", id), zap.Error(err))
		return
	}

	s.mu.RLock()
	entry, ok := s.handlers[task.Type]
	s.mu.RUnlock()
	if !ok {
		s.updateStatus(ctx, task, TaskFailed, fmt.Sprintf("no handler for task type %q", task.Type))
		return
	}

	s.updateStatus(ctx, task, TaskRunning, "")

	runErr := retry.Do(ctx, entry.policy, func(ctx context.Context) error {
		task.Attempts++
		return entry.fn(ctx, task.Payload)
	})
	if runErr == nil {
		s.updateStatus(ctx, task, TaskCompleted, "")
		return
	}

	s.updateStatus(ctx, task, TaskFailed, runErr.Error())
	s.logger.Error("taskqueue: task permanently failed",
		zap.String("task_id", task.ID),
		zap.String("type", task.Type),
		zap.Int("attempts", task.Attempts),
		zap.Error(runErr),
	)
	if entry.onFail != nil {
		entry.onFail(task, runErr)
	}
}

func (s *Service) updateStatus(ctx context.Context, task *Task, status TaskStatus, errMsg string) {
	task.Status = status
	task.Error = errMsg
	task.UpdatedAt = time.Now()
	data, err := json.Marshal(task)
	if err != nil {
		return
	}
	if err := s.rc.Raw().Set(ctx, s.taskKey(task.ID), data, taskTTL).Err(); err != nil {
		s.logger.Warn("taskqueue: status update failed", zap.String("task_id", task.ID), zap.Error(err))
	}
}
