package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/padoru233/trans-progress/internal/config"
	"github.com/padoru233/trans-progress/pkg/logger"
)

const (
	TaskTypeNotify = "notify:send"

	// Outbound sends are fire-and-forget with a bounded timeout and no
	// automatic retry within the same cycle.
	notifySendTimeout = 15 * time.Second
)

// NotifyTask is one group message awaiting delivery.
type NotifyTask struct {
	GroupID string  `json:"group_id"`
	Payload Payload `json:"payload"`
}

// TaskQueue defines the interface for notification dispatch.
type TaskQueue interface {
	// Enqueue adds a task to the queue.
	Enqueue(task *NotifyTask) error
	// IsAsync returns true if the queue processes tasks asynchronously.
	IsAsync() bool
	// Close gracefully shuts down the queue.
	Close() error
}

var (
	globalTaskQueue TaskQueue
	taskQueueOnce   sync.Once
)

// InitTaskQueue initializes the global task queue based on config:
// Redis-backed asynq when enabled, in-process synchronous otherwise.
func InitTaskQueue(cfg *config.Config) TaskQueue {
	taskQueueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncQueue(&cfg.Redis)
			if err != nil {
				logger.Infof("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
				globalTaskQueue = NewSyncQueue()
			} else {
				logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
				globalTaskQueue = queue
			}
		} else {
			logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
			globalTaskQueue = NewSyncQueue()
		}
	})
	return globalTaskQueue
}

// GetTaskQueue returns the global task queue instance.
func GetTaskQueue() TaskQueue {
	return globalTaskQueue
}

// AsyncQueue implements TaskQueue using asynq (Redis-based).
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)
	// Verify connectivity up front so we can fall back to sync mode.
	if err := client.Ping(); err != nil {
		client.Close()
		return nil, err
	}
	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(task *NotifyTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	_, err = q.client.Enqueue(
		asynq.NewTask(TaskTypeNotify, data),
		asynq.MaxRetry(0),
		asynq.Timeout(notifySendTimeout),
	)
	return err
}

func (q *AsyncQueue) IsAsync() bool { return true }

func (q *AsyncQueue) Close() error { return q.client.Close() }

// SyncQueue implements TaskQueue by delivering inline. The processor is
// installed during bootstrap once the sender exists.
type SyncQueue struct {
	mu        sync.RWMutex
	processor func(context.Context, *NotifyTask) error
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

// SetProcessor sets the delivery function used for inline dispatch.
func (q *SyncQueue) SetProcessor(processor func(context.Context, *NotifyTask) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processor = processor
}

func (q *SyncQueue) Enqueue(task *NotifyTask) error {
	q.mu.RLock()
	processor := q.processor
	q.mu.RUnlock()

	if processor == nil {
		logger.Warnf("[TaskQueue] No processor configured, dropping task for group %s", task.GroupID)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifySendTimeout)
	defer cancel()
	return processor(ctx, task)
}

func (q *SyncQueue) IsAsync() bool { return false }

func (q *SyncQueue) Close() error { return nil }
