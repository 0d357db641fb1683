package durable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/flowforge/orchestrator/internal/config"
	durablemodels "github.com/flowforge/orchestrator/internal/durable/models"
	"github.com/flowforge/orchestrator/internal/infrastructure/logger"
)

// ErrQueueItemNotFound is returned when a dequeue finds nothing claimable.
var ErrQueueItemNotFound = errors.New("durable: no queue item available")

// globalSemaphoreKeyPrefix namespaces the Redis INCR/DECR counters per queue name, so
// distinct queues don't share a global concurrency budget.
const globalSemaphoreKeyPrefix = "mbflow:durable:queue:concurrency:"

// DurableQueue is a Postgres-backed FIFO of workflow-start tokens, gated by both a
// per-worker concurrency limit and a Redis-backed global concurrency semaphore.
type DurableQueue struct {
	db        bun.IDB
	redis     *redis.Client
	cfg       config.DurableConfig
	log       *logger.Logger
	heldSlots *slotRegistry
}

// NewDurableQueue builds a queue. redisClient may be nil, in which case the global
// concurrency gate is skipped and only per-dequeue worker concurrency applies.
func NewDurableQueue(db bun.IDB, redisClient *redis.Client, cfg config.DurableConfig, log *logger.Logger) *DurableQueue {
	return &DurableQueue{
		db:        db,
		redis:     redisClient,
		cfg:       cfg,
		log:       log,
		heldSlots: newSlotRegistry(),
	}
}

// Enqueue is idempotent by workflow ID: re-enqueuing an already-queued workflow is a
// no-op success.
func (q *DurableQueue) Enqueue(ctx context.Context, queueName, workflowID string) error {
	row := &durablemodels.DurableQueueModel{
		QueueName:          queueName,
		WorkflowID:         workflowID,
		ApplicationVersion: q.cfg.ApplicationVersion,
		EnqueuedAt:         time.Now(),
	}
	_, err := q.db.NewInsert().
		Model(row).
		On("CONFLICT (workflow_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("durable: enqueue workflow %s: %w", workflowID, err)
	}
	if q.log != nil {
		q.log.DebugContext(ctx, "durable: enqueued workflow", "queue", queueName, "workflow_id", workflowID)
	}
	return nil
}

// Dequeue claims the oldest unclaimed, unstarted item in the queue matching this worker's
// application version (so in-flight deploys don't pick up work built for a different
// binary), honoring the global Redis semaphore first.
func (q *DurableQueue) Dequeue(ctx context.Context, queueName, workerID string) (*durablemodels.DurableQueueModel, error) {
	release, ok, err := q.acquireGlobalSlot(ctx, queueName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrQueueItemNotFound
	}

	var claimed *durablemodels.DurableQueueModel
	err = q.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(durablemodels.DurableQueueModel)
		err := tx.NewSelect().
			Model(row).
			Where("queue_name = ?", queueName).
			Where("application_version = ?", q.cfg.ApplicationVersion).
			Where("started_at IS NULL").
			OrderExpr("enqueued_at ASC").
			Limit(1).
			For("UPDATE SKIP LOCKED").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrQueueItemNotFound
			}
			return fmt.Errorf("durable: select queue head: %w", err)
		}

		now := time.Now()
		_, err = tx.NewUpdate().
			Model(row).
			Set("started_at = ?", now).
			Set("claimed_by_worker_id = ?", workerID).
			Where("id = ?", row.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("durable: claim queue item %d: %w", row.ID, err)
		}
		claimed = row
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrQueueItemNotFound) {
			release()
			return nil, ErrQueueItemNotFound
		}
		release()
		return nil, err
	}
	// release is intentionally NOT called here: the global slot stays held until Complete
	// is called for this workflow, bounding actual in-flight concurrency, not just dequeue rate.
	q.heldSlots.store(claimed.WorkflowID, release)
	return claimed, nil
}

// Requeue returns an already-claimed workflow to the back of the FIFO, clearing its claim
// so a later Dequeue can pick it up again. Used by the recovery sweeper: a plain Enqueue
// would no-op on the existing row and leave the stale claim in place forever.
func (q *DurableQueue) Requeue(ctx context.Context, queueName, workflowID string) error {
	res, err := q.db.NewUpdate().
		Model((*durablemodels.DurableQueueModel)(nil)).
		Set("started_at = NULL").
		Set("claimed_by_worker_id = NULL").
		Set("completed_at = NULL").
		Set("enqueued_at = ?", time.Now()).
		Where("workflow_id = ?", workflowID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("durable: requeue workflow %s: %w", workflowID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return q.Enqueue(ctx, queueName, workflowID)
	}
	return nil
}

// Complete marks a queue item finished and releases its global concurrency slot.
func (q *DurableQueue) Complete(ctx context.Context, workflowID string) error {
	now := time.Now()
	_, err := q.db.NewUpdate().
		Model((*durablemodels.DurableQueueModel)(nil)).
		Set("completed_at = ?", now).
		Where("workflow_id = ?", workflowID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("durable: complete queue item %s: %w", workflowID, err)
	}
	if release, ok := q.heldSlots.loadAndDelete(workflowID); ok {
		release()
	}
	return nil
}

// acquireGlobalSlot enforces DurableConfig.QueueConcurrency as a hard ceiling via a Redis
// INCR-based semaphore. With no Redis client configured, it always grants the slot.
func (q *DurableQueue) acquireGlobalSlot(ctx context.Context, queueName string) (release func(), ok bool, err error) {
	if q.redis == nil || q.cfg.QueueConcurrency <= 0 {
		return func() {}, true, nil
	}

	key := globalSemaphoreKeyPrefix + queueName
	n, err := q.redis.Incr(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("durable: global concurrency incr: %w", err)
	}
	if n > int64(q.cfg.QueueConcurrency) {
		q.redis.Decr(ctx, key)
		return nil, false, nil
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		q.redis.Decr(ctx, key)
	}, true, nil
}

// slotRegistry is a trivial concurrent map from workflow ID to its held-slot releaser.
type slotRegistry struct {
	mu sync.Mutex
	m  map[string]func()
}

func newSlotRegistry() *slotRegistry {
	return &slotRegistry{m: make(map[string]func())}
}

func (r *slotRegistry) store(workflowID string, release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[workflowID] = release
}

func (r *slotRegistry) loadAndDelete(workflowID string) (func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	release, ok := r.m[workflowID]
	if ok {
		delete(r.m, workflowID)
	}
	return release, ok
}
