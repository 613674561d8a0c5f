package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/stockyard-ci/stockyard/internal/config"
	"github.com/stockyard-ci/stockyard/pkg/logger"
)

// Worker consumes notification tasks from Redis.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor EventProcessor
	running   bool
	mu        sync.Mutex
}

// NewWorker returns nil when the queue is not Redis-backed.
func NewWorker(redisCfg *config.RedisConfig, notifyCfg *config.NotificationConfig, processor EventProcessor) *Worker {
	if !redisCfg.Enabled {
		return nil
	}

	concurrency := notifyCfg.QueueConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	server := asynq.NewServer(
		redisClientOpt(redisCfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Errorf("[Worker] Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	w := &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		processor: processor,
	}
	w.mux.HandleFunc(TaskTypeNotification, w.handleNotificationTask)
	return w
}

// Start runs the asynq server in the background. Signals are handled by the
// caller, which calls Stop.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	w.running = true
	logger.Infof("[Worker] Async worker started")
	return nil
}

func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	logger.Infof("[Worker] Shutdown complete")
}

func (w *Worker) handleNotificationTask(ctx context.Context, t *asynq.Task) error {
	var event BuildEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		// nothing to retry for a payload that never parses
		return fmt.Errorf("unmarshal build event: %v: %w", err, asynq.SkipRetry)
	}

	logger.Debugf("[Worker] Processing %s for build %s (%s/%s)",
		event.Notification, event.BuildID, event.Owner, event.Repository)

	if w.processor == nil {
		logger.Warnf("[Worker] No processor set")
		return nil
	}
	return w.processor(ctx, &event)
}
