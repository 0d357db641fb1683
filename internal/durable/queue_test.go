package durable

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	durablemodels "github.com/flowforge/orchestrator/internal/durable/models"
)

func TestDurableQueue_EnqueueIdempotent(t *testing.T) {
	db := setupDB(t)
	queue := NewDurableQueue(db, nil, testDurableConfig(), nil)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, "executions", "wf-1"))
	require.NoError(t, queue.Enqueue(ctx, "executions", "wf-1"))

	count, err := db.NewSelect().
		Model((*durablemodels.DurableQueueModel)(nil)).
		Where("workflow_id = ?", "wf-1").
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDurableQueue_DequeueFIFO(t *testing.T) {
	db := setupDB(t)
	queue := NewDurableQueue(db, nil, testDurableConfig(), nil)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, "executions", "wf-a"))
	require.NoError(t, queue.Enqueue(ctx, "executions", "wf-b"))

	first, err := queue.Dequeue(ctx, "executions", "worker-1")
	require.NoError(t, err)
	assert.Equal(t, "wf-a", first.WorkflowID)
	require.NotNil(t, first.StartedAt)
	require.NotNil(t, first.ClaimedByWorkerID)
	assert.Equal(t, "worker-1", *first.ClaimedByWorkerID)

	second, err := queue.Dequeue(ctx, "executions", "worker-1")
	require.NoError(t, err)
	assert.Equal(t, "wf-b", second.WorkflowID)

	_, err = queue.Dequeue(ctx, "executions", "worker-1")
	assert.ErrorIs(t, err, ErrQueueItemNotFound)
}

func TestDurableQueue_DequeueFiltersApplicationVersion(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	oldCfg := testDurableConfig()
	oldCfg.ApplicationVersion = "v1"
	oldQueue := NewDurableQueue(db, nil, oldCfg, nil)
	require.NoError(t, oldQueue.Enqueue(ctx, "executions", "wf-old"))

	newCfg := testDurableConfig()
	newCfg.ApplicationVersion = "v2"
	newQueue := NewDurableQueue(db, nil, newCfg, nil)

	_, err := newQueue.Dequeue(ctx, "executions", "worker-1")
	assert.ErrorIs(t, err, ErrQueueItemNotFound, "a v2 worker must not claim v1 work")

	item, err := oldQueue.Dequeue(ctx, "executions", "worker-2")
	require.NoError(t, err)
	assert.Equal(t, "wf-old", item.WorkflowID)
}

func TestDurableQueue_CompleteAndRequeue(t *testing.T) {
	db := setupDB(t)
	queue := NewDurableQueue(db, nil, testDurableConfig(), nil)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, "executions", "wf-1"))
	_, err := queue.Dequeue(ctx, "executions", "worker-1")
	require.NoError(t, err)

	// Claimed: no longer dequeueable.
	_, err = queue.Dequeue(ctx, "executions", "worker-2")
	assert.ErrorIs(t, err, ErrQueueItemNotFound)

	// Requeue clears the claim so another worker can resume it.
	require.NoError(t, queue.Requeue(ctx, "executions", "wf-1"))
	item, err := queue.Dequeue(ctx, "executions", "worker-2")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", item.WorkflowID)

	require.NoError(t, queue.Complete(ctx, "wf-1"))
	got := new(durablemodels.DurableQueueModel)
	require.NoError(t, db.NewSelect().Model(got).Where("workflow_id = ?", "wf-1").Scan(ctx))
	assert.NotNil(t, got.CompletedAt)
}

func TestDurableQueue_RequeueMissingRowFallsBackToEnqueue(t *testing.T) {
	db := setupDB(t)
	queue := NewDurableQueue(db, nil, testDurableConfig(), nil)
	ctx := context.Background()

	require.NoError(t, queue.Requeue(ctx, "executions", "wf-ghost"))

	item, err := queue.Dequeue(ctx, "executions", "worker-1")
	require.NoError(t, err)
	assert.Equal(t, "wf-ghost", item.WorkflowID)
}

func TestDurableQueue_GlobalConcurrencyGate(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := testDurableConfig()
	cfg.QueueConcurrency = 1
	queue := NewDurableQueue(db, client, cfg, nil)

	require.NoError(t, queue.Enqueue(ctx, "executions", "wf-a"))
	require.NoError(t, queue.Enqueue(ctx, "executions", "wf-b"))

	first, err := queue.Dequeue(ctx, "executions", "worker-1")
	require.NoError(t, err)
	assert.Equal(t, "wf-a", first.WorkflowID)

	// The single global slot is held until wf-a completes.
	_, err = queue.Dequeue(ctx, "executions", "worker-1")
	assert.ErrorIs(t, err, ErrQueueItemNotFound)

	require.NoError(t, queue.Complete(ctx, "wf-a"))

	second, err := queue.Dequeue(ctx, "executions", "worker-1")
	require.NoError(t, err)
	assert.Equal(t, "wf-b", second.WorkflowID)
}
