package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/middleware"
	"github.com/SscSPs/fulfillment_coordinator/internal/platform/clock"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the sorted set holding pending tasks, scored by due time in
// unix milliseconds.
const DefaultKey = "fulfillment:scheduled_tasks"

// DefaultLease is how long a claimed task stays invisible to other pollers.
const DefaultLease = 2 * time.Minute

// Connect initializes a Redis client from URL or host:port input.
func Connect(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// TaskQueue is the sorted-set view the poller works against. Members are
// encoded tasks; scores are the time a member next becomes visible.
type TaskQueue interface {
	Add(ctx context.Context, member string, at time.Time) error
	Due(ctx context.Context, now time.Time, limit int64) ([]string, error)
	// Lease pushes a due member's score to until and reports whether this
	// caller won it.
	Lease(ctx context.Context, member string, now, until time.Time) (bool, error)
	Ack(ctx context.Context, member string) error
}

// leaseScript moves a member's score forward only if it is still due, so two
// pollers cannot both claim it.
var leaseScript = redis.NewScript(`
local score = redis.call('ZSCORE', KEYS[1], ARGV[1])
if not score or tonumber(score) > tonumber(ARGV[2]) then
	return 0
end
redis.call('ZADD', KEYS[1], 'XX', ARGV[3], ARGV[1])
return 1
`)

type redisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue creates a TaskQueue on the sorted set key.
func NewRedisQueue(client *redis.Client, key string) TaskQueue {
	if key == "" {
		key = DefaultKey
	}
	return &redisQueue{client: client, key: key}
}

func (q *redisQueue) Add(ctx context.Context, member string, at time.Time) error {
	return q.client.ZAdd(ctx, q.key, redis.Z{Score: float64(at.UnixMilli()), Member: member}).Err()
}

func (q *redisQueue) Due(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	return q.client.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: limit,
	}).Result()
}

func (q *redisQueue) Lease(ctx context.Context, member string, now, until time.Time) (bool, error) {
	won, err := leaseScript.Run(ctx, q.client, []string{q.key}, member, now.UnixMilli(), until.UnixMilli()).Int()
	if err != nil {
		return false, err
	}
	return won == 1, nil
}

func (q *redisQueue) Ack(ctx context.Context, member string) error {
	return q.client.ZRem(ctx, q.key, member).Err()
}

// RedisScheduler stores tasks in a sorted set. A poller leases due members by
// pushing their score past a visibility window and removes them only after the
// handler succeeds, so a worker dying mid-task leads to redelivery rather than
// loss. Failed tasks become visible again after a retry delay.
type RedisScheduler struct {
	queue      TaskQueue
	clock      clock.Clock
	batchSize  int64
	lease      time.Duration
	retryDelay time.Duration
}

// NewRedisScheduler creates a scheduler on key.
func NewRedisScheduler(client *redis.Client, key string, clk clock.Clock) *RedisScheduler {
	return NewQueueScheduler(NewRedisQueue(client, key), clk, DefaultLease)
}

// NewQueueScheduler creates a scheduler over any TaskQueue.
func NewQueueScheduler(queue TaskQueue, clk clock.Clock, lease time.Duration) *RedisScheduler {
	if clk == nil {
		clk = clock.System{}
	}
	if lease <= 0 {
		lease = DefaultLease
	}
	return &RedisScheduler{queue: queue, clock: clk, batchSize: 50, lease: lease, retryDelay: 30 * time.Second}
}

var _ portssvc.Scheduler = (*RedisScheduler)(nil)

func (s *RedisScheduler) Schedule(ctx context.Context, task domain.ScheduledTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	return s.queue.Add(ctx, string(data), task.RunAt)
}

// Run polls every interval until ctx is cancelled.
func (s *RedisScheduler) Run(ctx context.Context, interval time.Duration, handler portssvc.TaskHandler) {
	logger := middleware.GetLoggerFromCtx(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Scheduler poller started", slog.Duration("interval", interval), slog.Duration("lease", s.lease))
	for {
		select {
		case <-ctx.Done():
			logger.Info("Scheduler poller stopped")
			return
		case <-ticker.C:
			if _, err := s.Poll(ctx, handler); err != nil {
				logger.Error("Scheduler poll failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Poll handles every task due now and reports how many were claimed.
func (s *RedisScheduler) Poll(ctx context.Context, handler portssvc.TaskHandler) (int, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := s.clock.Now()
	members, err := s.queue.Due(ctx, now, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("range due tasks: %w", err)
	}

	claimed := 0
	for _, member := range members {
		won, err := s.queue.Lease(ctx, member, now, now.Add(s.lease))
		if err != nil {
			return claimed, fmt.Errorf("lease task: %w", err)
		}
		if !won {
			// another worker holds it
			continue
		}
		claimed++

		var task domain.ScheduledTask
		if err := json.Unmarshal([]byte(member), &task); err != nil {
			logger.Error("Dropping malformed task", slog.String("error", err.Error()))
			if err := s.queue.Ack(ctx, member); err != nil {
				return claimed, fmt.Errorf("drop task: %w", err)
			}
			continue
		}
		if err := handler.HandleTask(ctx, task); err != nil {
			logger.Warn("Scheduled task failed, retrying", slog.String("task_id", task.TaskID), slog.String("error", err.Error()))
			if err := s.queue.Add(ctx, member, now.Add(s.retryDelay)); err != nil {
				// the lease still expires, so the task is redelivered anyway
				logger.Error("Failed to requeue task", slog.String("task_id", task.TaskID), slog.String("error", err.Error()))
			}
			continue
		}
		if err := s.queue.Ack(ctx, member); err != nil {
			return claimed, fmt.Errorf("ack task %s: %w", task.TaskID, err)
		}
	}
	return claimed, nil
}
