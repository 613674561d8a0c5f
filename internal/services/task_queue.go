package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/stockyard-ci/stockyard/internal/config"
	"github.com/stockyard-ci/stockyard/pkg/logger"
)

const (
	TaskTypeNotification = "notification:build"

	QueueModeAsync = "async"
	QueueModeSync  = "sync"
)

// EventProcessor handles one dequeued build event.
type EventProcessor func(context.Context, *BuildEvent) error

// TaskQueue accepts build events for background delivery.
type TaskQueue interface {
	Enqueue(ctx context.Context, event *BuildEvent) error
	// Mode is QueueModeAsync or QueueModeSync.
	Mode() string
	Close() error
}

// NewTaskQueue returns a Redis-backed queue when Redis is enabled and
// reachable, otherwise a queue that processes events in-process.
func NewTaskQueue(cfg *config.RedisConfig, processor EventProcessor) TaskQueue {
	if !cfg.Enabled {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
		return NewSyncQueue(processor)
	}

	queue, err := NewAsyncQueue(cfg)
	if err != nil {
		logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
		return NewSyncQueue(processor)
	}
	logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
	return queue
}

func redisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue implements TaskQueue using asynq.
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := redisClientOpt(cfg)

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		return nil, err
	}

	return &AsyncQueue{client: asynq.NewClient(redisOpt)}, nil
}

func (q *AsyncQueue) Enqueue(ctx context.Context, event *BuildEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// Notifications are best effort; a failed delivery is not retried.
	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeNotification, payload),
		asynq.Queue("default"),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return err
	}

	logger.Debugf("[AsyncQueue] Task enqueued: id=%s, queue=%s", info.ID, info.Queue)
	return nil
}

func (q *AsyncQueue) Mode() string { return QueueModeAsync }

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue processes each event on its own goroutine without Redis.
type SyncQueue struct {
	processor EventProcessor
	wg        sync.WaitGroup
}

func NewSyncQueue(processor EventProcessor) *SyncQueue {
	return &SyncQueue{processor: processor}
}

func (q *SyncQueue) Enqueue(_ context.Context, event *BuildEvent) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] No processor set, event %s dropped", event.BuildID)
		return nil
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		// the request context ends with the response
		if err := q.processor(context.Background(), event); err != nil {
			logger.Errorf("[SyncQueue] Event processing failed: %v", err)
		}
	}()
	return nil
}

func (q *SyncQueue) Mode() string { return QueueModeSync }

// Close waits for in-flight events to finish.
func (q *SyncQueue) Close() error {
	q.wg.Wait()
	return nil
}
