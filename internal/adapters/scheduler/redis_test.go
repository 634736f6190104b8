package scheduler_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/adapters/scheduler"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	"github.com/SscSPs/fulfillment_coordinator/internal/platform/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sortedSet mirrors the sorted-set semantics of the Redis queue.
type sortedSet struct {
	mu     sync.Mutex
	scores map[string]time.Time
}

func newSortedSet() *sortedSet {
	return &sortedSet{scores: map[string]time.Time{}}
}

func (q *sortedSet) Add(_ context.Context, member string, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.scores[member] = at
	return nil
}

func (q *sortedSet) Due(_ context.Context, now time.Time, limit int64) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []string
	for m, at := range q.scores {
		if !at.After(now) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return q.scores[out[i]].Before(q.scores[out[j]]) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *sortedSet) Lease(_ context.Context, member string, now, until time.Time) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	at, ok := q.scores[member]
	if !ok || at.After(now) {
		return false, nil
	}
	q.scores[member] = until
	return true, nil
}

func (q *sortedSet) Ack(_ context.Context, member string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.scores, member)
	return nil
}

func (q *sortedSet) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.scores)
}

func TestRedisScheduler_WorkerDyingMidTaskRedelivers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	queue := newSortedSet()
	s := scheduler.NewQueueScheduler(queue, clk, time.Minute)
	require.NoError(t, s.Schedule(ctx, domain.ScheduledTask{TaskID: "auto-release", Kind: domain.TaskEscrowAutoRelease, RunAt: now}))

	// The handler never returns, as if the process were killed.
	assert.Panics(t, func() {
		_, _ = s.Poll(ctx, handlerFunc(func(context.Context, domain.ScheduledTask) error { panic("killed") }))
	})
	assert.Equal(t, 1, queue.Len())

	var seen []string
	record := handlerFunc(func(_ context.Context, task domain.ScheduledTask) error {
		seen = append(seen, task.TaskID)
		return nil
	})

	clk.Advance(30 * time.Second)
	n, err := s.Poll(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "leased task must stay hidden until the lease expires")

	clk.Advance(30 * time.Second)
	n, err = s.Poll(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"auto-release"}, seen)
	assert.Equal(t, 0, queue.Len())
}

func TestRedisScheduler_FailedTaskRetriesAfterDelay(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	queue := newSortedSet()
	s := scheduler.NewQueueScheduler(queue, clk, 5*time.Minute)
	require.NoError(t, s.Schedule(ctx, domain.ScheduledTask{TaskID: "fallback", RunAt: now}))

	n, err := s.Poll(ctx, handlerFunc(func(context.Context, domain.ScheduledTask) error { return errors.New("storage down") }))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, queue.Len())

	calls := 0
	ok := handlerFunc(func(context.Context, domain.ScheduledTask) error {
		calls++
		return nil
	})
	clk.Advance(29 * time.Second)
	_, err = s.Poll(ctx, ok)
	require.NoError(t, err)
	assert.Equal(t, 0, calls)

	clk.Advance(time.Second)
	_, err = s.Poll(ctx, ok)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, queue.Len())
}

func TestRedisScheduler_OnlyOnePollerClaimsATask(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	queue := newSortedSet()
	first := scheduler.NewQueueScheduler(queue, clk, time.Minute)
	second := scheduler.NewQueueScheduler(queue, clk, time.Minute)
	require.NoError(t, first.Schedule(ctx, domain.ScheduledTask{TaskID: "t1", RunAt: now}))

	var handled []string
	_, err := first.Poll(ctx, handlerFunc(func(ctx context.Context, task domain.ScheduledTask) error {
		n, err := second.Poll(ctx, handlerFunc(func(_ context.Context, task domain.ScheduledTask) error {
			handled = append(handled, "second:"+task.TaskID)
			return nil
		}))
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		handled = append(handled, "first:"+task.TaskID)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"first:t1"}, handled)
}
