package durable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/uptrace/bun"

	"github.com/flowforge/orchestrator/internal/config"
	durablemodels "github.com/flowforge/orchestrator/internal/durable/models"
	"github.com/flowforge/orchestrator/internal/infrastructure/logger"
	storagemodels "github.com/flowforge/orchestrator/internal/infrastructure/storage/models"
)

// ErrWorkflowNotFound is returned when no workflow_status row exists for an id.
var ErrWorkflowNotFound = errors.New("durable: workflow not found")

// ErrWorkflowNotRegistered is returned when startWorkflow names an unregistered function.
var ErrWorkflowNotRegistered = errors.New("durable: workflow function not registered")

// ErrOperationForbiddenInStep is returned when a step function calls a runtime operation
// that is only legal at the top level of a workflow body: RunStep, Send and Recv may not be
// called from inside another RunStep.
var ErrOperationForbiddenInStep = errors.New("durable: durable operation forbidden inside a step")

// WorkflowFunc is a registered durable workflow body. ctx carries the *RunContext value
// used to checkpoint steps, send/recv messages, and read/write streams.
type WorkflowFunc func(ctx context.Context, rc *RunContext, input map[string]interface{}) (map[string]interface{}, error)

// StepFunc is the body of a single checkpointed unit of work.
type StepFunc func(ctx context.Context) (map[string]interface{}, error)

// WorkflowRuntime handles workflow registration, durable start/run, step checkpointing
// with skip-on-replay, inter-workflow messaging, stream writes, and crash recovery.
type WorkflowRuntime struct {
	db    *bun.DB
	queue *DurableQueue
	store *ExecutionStore
	cfg   config.DurableConfig
	log   *logger.Logger

	mu        sync.RWMutex
	functions map[string]WorkflowFunc

	workerID string
	cron     *cron.Cron
}

// NewWorkflowRuntime constructs the runtime over a live *bun.DB connection pool.
func NewWorkflowRuntime(db *bun.DB, queue *DurableQueue, store *ExecutionStore, cfg config.DurableConfig, log *logger.Logger, workerID string) *WorkflowRuntime {
	return &WorkflowRuntime{
		db:        db,
		queue:     queue,
		store:     store,
		cfg:       cfg,
		log:       log,
		functions: make(map[string]WorkflowFunc),
		workerID:  workerID,
	}
}

// RegisterWorkflow associates a durable workflow body with a name, the same name used as
// both the durable_queue entry's logical function and workflow_status.name.
func (r *WorkflowRuntime) RegisterWorkflow(name string, fn WorkflowFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[name] = fn
}

func (r *WorkflowRuntime) lookup(name string) (WorkflowFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[name]
	return fn, ok
}

// StartWorkflow creates (idempotently) the workflow_status row and enqueues it on the
// durable queue. It does not run the body: that happens when a worker dequeues it and
// calls RunWorkflow; "starting" only durably records intent to run.
func (r *WorkflowRuntime) StartWorkflow(ctx context.Context, name, workflowID, queueName string, input map[string]interface{}) error {
	if _, ok := r.lookup(name); !ok {
		return fmt.Errorf("%w: %s", ErrWorkflowNotRegistered, name)
	}

	row := &durablemodels.WorkflowStatusModel{
		WorkflowID:         workflowID,
		Name:               name,
		QueueName:          queueName,
		ApplicationVersion: r.cfg.ApplicationVersion,
		Status:             durablemodels.WorkflowStatusEnqueued,
		Input:              storagemodels.JSONBMap(input),
	}
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (workflow_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("durable: start workflow %s: %w", workflowID, err)
	}

	if err := r.queue.Enqueue(ctx, queueName, workflowID); err != nil {
		return err
	}
	if r.log != nil {
		r.log.InfoContext(ctx, "durable: workflow started", "workflow_id", workflowID, "name", name)
	}
	return nil
}

// RunWorkflow executes (or resumes) the body for a dequeued workflow ID. On a fresh run it
// transitions pending/enqueued -> running; on a resumed run after a crash, already-checkpointed
// steps are skipped (the replay guard lives in RunStep) and execution continues from the first
// uncheckpointed step.
func (r *WorkflowRuntime) RunWorkflow(ctx context.Context, workflowID string) error {
	status, err := r.getStatus(ctx, workflowID)
	if err != nil {
		return err
	}
	if status.Status == durablemodels.WorkflowStatusSuccess || status.Status == durablemodels.WorkflowStatusCancelled {
		return nil // already terminal; recovery sweep or duplicate dequeue, both are no-ops
	}

	fn, ok := r.lookup(status.Name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrWorkflowNotRegistered, status.Name)
	}

	if _, err := r.db.NewUpdate().
		Model((*durablemodels.WorkflowStatusModel)(nil)).
		Set("status = ?", durablemodels.WorkflowStatusRunning).
		Set("worker_id = ?", r.workerID).
		Where("workflow_id = ?", workflowID).
		Exec(ctx); err != nil {
		return fmt.Errorf("durable: mark workflow running %s: %w", workflowID, err)
	}

	rc := &RunContext{rt: r, workflowID: workflowID, stepIndex: 0}
	result, runErr := fn(ctx, rc, map[string]interface{}(status.Input))

	if runErr != nil {
		errMsg := runErr.Error()
		_, uErr := r.db.NewUpdate().
			Model((*durablemodels.WorkflowStatusModel)(nil)).
			Set("status = ?", durablemodels.WorkflowStatusError).
			Set("error = ?", errMsg).
			Where("workflow_id = ?", workflowID).
			Exec(ctx)
		if uErr != nil {
			return fmt.Errorf("durable: record workflow error %s: %w", workflowID, uErr)
		}
		_ = r.queue.Complete(ctx, workflowID)
		return runErr
	}

	_, err = r.db.NewUpdate().
		Model((*durablemodels.WorkflowStatusModel)(nil)).
		Set("status = ?", durablemodels.WorkflowStatusSuccess).
		Set("result = ?", storagemodels.JSONBMap(result)).
		Where("workflow_id = ?", workflowID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("durable: record workflow success %s: %w", workflowID, err)
	}
	return r.queue.Complete(ctx, workflowID)
}

func (r *WorkflowRuntime) getStatus(ctx context.Context, workflowID string) (*durablemodels.WorkflowStatusModel, error) {
	row := new(durablemodels.WorkflowStatusModel)
	err := r.db.NewSelect().Model(row).Where("workflow_id = ?", workflowID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("durable: get workflow status %s: %w", workflowID, err)
	}
	return row, nil
}

// GetStatus is the public read of a workflow's current status row.
func (r *WorkflowRuntime) GetStatus(ctx context.Context, workflowID string) (*durablemodels.WorkflowStatusModel, error) {
	return r.getStatus(ctx, workflowID)
}

// ListWorkflows lists workflow_status rows, optionally filtered by queue name.
func (r *WorkflowRuntime) ListWorkflows(ctx context.Context, queueName string, limit int) ([]*durablemodels.WorkflowStatusModel, error) {
	var rows []*durablemodels.WorkflowStatusModel
	q := r.db.NewSelect().Model(&rows).OrderExpr("created_at DESC").Limit(limit)
	if queueName != "" {
		q = q.Where("queue_name = ?", queueName)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("durable: list workflows: %w", err)
	}
	return rows, nil
}

// ListWorkflowSteps returns the checkpointed steps for a workflow, in execution order.
func (r *WorkflowRuntime) ListWorkflowSteps(ctx context.Context, workflowID string) ([]*durablemodels.WorkflowStepModel, error) {
	var rows []*durablemodels.WorkflowStepModel
	err := r.db.NewSelect().
		Model(&rows).
		Where("workflow_id = ?", workflowID).
		OrderExpr("function_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("durable: list workflow steps %s: %w", workflowID, err)
	}
	return rows, nil
}

// CancelWorkflow marks a workflow cancelled. A running worker observes this on its next
// step boundary by polling GetStatus; it is not preemptive mid-step.
func (r *WorkflowRuntime) CancelWorkflow(ctx context.Context, workflowID string) error {
	_, err := r.db.NewUpdate().
		Model((*durablemodels.WorkflowStatusModel)(nil)).
		Set("status = ?", durablemodels.WorkflowStatusCancelled).
		Where("workflow_id = ?", workflowID).
		Where("status NOT IN (?)", bun.In([]durablemodels.WorkflowRuntimeStatus{
			durablemodels.WorkflowStatusSuccess,
			durablemodels.WorkflowStatusError,
			durablemodels.WorkflowStatusCancelled,
		})).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("durable: cancel workflow %s: %w", workflowID, err)
	}
	return nil
}

// SendSignal delivers a message to a workflow's topic from outside any running workflow
// body - the control plane's "start" call uses this to unblock a root execution's initial
// recv, since a root execution has no parent rc to self-send from. External sends use the
// sentinel step index -1, which the idempotency index deliberately excludes: repeated
// pause/resume cycles need fresh rows on the same key, and a duplicated start signal is
// harmless because the workflow consumes exactly one.
func (r *WorkflowRuntime) SendSignal(ctx context.Context, recipientWorkflowID, topic string, payload map[string]interface{}) error {
	msg := &durablemodels.WorkflowMessageModel{
		RecipientWorkflowID: recipientWorkflowID,
		Topic:               topic,
		SenderStepIndex:     -1,
		Payload:             storagemodels.JSONBMap(payload),
		EnqueuedAt:          time.Now(),
	}
	_, err := r.db.NewInsert().
		Model(msg).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("durable: send signal to %s/%s: %w", recipientWorkflowID, topic, err)
	}
	return nil
}

// RunContext is the handle a WorkflowFunc uses to perform durable operations. It is not
// safe for concurrent use by multiple goroutines within one workflow body; a workflow runs
// its steps sequentially on a single goroutine.
type RunContext struct {
	rt         *WorkflowRuntime
	workflowID string
	stepIndex  int
	inStep     bool
}

// RunStep checkpoints the result of fn at the current step index. On a fresh run, fn
// executes and its result is persisted. On replay (after a crash), if a row already exists
// at this index, fn is NOT invoked again; its persisted output is returned directly. This
// is what makes replay after a crash safe.
func (rc *RunContext) RunStep(ctx context.Context, stepName string, fn StepFunc) (map[string]interface{}, error) {
	if rc.inStep {
		return nil, ErrOperationForbiddenInStep
	}
	idx := rc.stepIndex
	rc.stepIndex++

	existing := new(durablemodels.WorkflowStepModel)
	err := rc.rt.db.NewSelect().
		Model(existing).
		Where("workflow_id = ?", rc.workflowID).
		Where("function_index = ?", idx).
		Scan(ctx)
	if err == nil {
		if existing.Error != nil {
			return nil, errors.New(*existing.Error)
		}
		return map[string]interface{}(existing.Output), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("durable: check step checkpoint %s[%d]: %w", rc.workflowID, idx, err)
	}

	rc.inStep = true
	output, stepErr := fn(ctx)
	rc.inStep = false

	row := &durablemodels.WorkflowStepModel{
		WorkflowID:    rc.workflowID,
		FunctionIndex: idx,
		StepName:      stepName,
		CreatedAt:     time.Now(),
	}
	if stepErr != nil {
		msg := stepErr.Error()
		row.Error = &msg
	} else {
		row.Output = storagemodels.JSONBMap(output)
	}

	if _, err := rc.rt.db.NewInsert().
		Model(row).
		On("CONFLICT (workflow_id, function_index) DO NOTHING").
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("durable: checkpoint step %s[%d]: %w", rc.workflowID, idx, err)
	}

	return output, stepErr
}

// Send delivers a message to a recipient workflow's topic, idempotent on
// (recipient_workflow_id, topic, sender_step_index) so a replayed Send does not double-enqueue.
func (rc *RunContext) Send(ctx context.Context, recipientWorkflowID, topic string, payload map[string]interface{}) error {
	if rc.inStep {
		return ErrOperationForbiddenInStep
	}
	idx := rc.stepIndex
	rc.stepIndex++

	msg := &durablemodels.WorkflowMessageModel{
		RecipientWorkflowID: recipientWorkflowID,
		Topic:               topic,
		SenderStepIndex:     idx,
		Payload:             storagemodels.JSONBMap(payload),
		EnqueuedAt:          time.Now(),
	}
	_, err := rc.rt.db.NewInsert().
		Model(msg).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("durable: send message to %s/%s: %w", recipientWorkflowID, topic, err)
	}
	return nil
}

// Recv blocks (polling on a short interval, bounded by ctx) until a message arrives on the
// given topic for this workflow, then marks it delivered and returns its payload. The
// received payload is checkpointed at this call's step index, so a replayed body gets the
// same payload back instead of blocking on a message that was already consumed.
func (rc *RunContext) Recv(ctx context.Context, topic string, pollInterval time.Duration) (map[string]interface{}, error) {
	if rc.inStep {
		return nil, ErrOperationForbiddenInStep
	}
	idx := rc.stepIndex
	rc.stepIndex++

	existing := new(durablemodels.WorkflowStepModel)
	err := rc.rt.db.NewSelect().
		Model(existing).
		Where("workflow_id = ?", rc.workflowID).
		Where("function_index = ?", idx).
		Scan(ctx)
	if err == nil {
		return map[string]interface{}(existing.Output), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("durable: check recv checkpoint %s[%d]: %w", rc.workflowID, idx, err)
	}

	if pollInterval <= 0 {
		pollInterval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		msg := new(durablemodels.WorkflowMessageModel)
		err := rc.rt.db.NewSelect().
			Model(msg).
			Where("recipient_workflow_id = ?", rc.workflowID).
			Where("topic = ?", topic).
			Where("delivered_at IS NULL").
			OrderExpr("id ASC").
			Limit(1).
			Scan(ctx)
		if err == nil {
			now := time.Now()
			if _, uErr := rc.rt.db.NewUpdate().
				Model(msg).
				Set("delivered_at = ?", now).
				Where("id = ?", msg.ID).
				Where("delivered_at IS NULL").
				Exec(ctx); uErr != nil {
				return nil, fmt.Errorf("durable: mark message delivered: %w", uErr)
			}

			checkpoint := &durablemodels.WorkflowStepModel{
				WorkflowID:    rc.workflowID,
				FunctionIndex: idx,
				StepName:      "recv:" + topic,
				Output:        msg.Payload,
				CreatedAt:     now,
			}
			if _, cErr := rc.rt.db.NewInsert().
				Model(checkpoint).
				On("CONFLICT (workflow_id, function_index) DO NOTHING").
				Exec(ctx); cErr != nil {
				return nil, fmt.Errorf("durable: checkpoint recv %s[%d]: %w", rc.workflowID, idx, cErr)
			}
			return map[string]interface{}(msg.Payload), nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("durable: recv poll %s/%s: %w", rc.workflowID, topic, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// WriteStream appends a value to a named stream at the next dense offset for that key.
func (rc *RunContext) WriteStream(ctx context.Context, streamKey string, value map[string]interface{}) error {
	var nextOffset sql.NullInt64
	err := rc.rt.db.NewSelect().
		Model((*durablemodels.StreamModel)(nil)).
		ColumnExpr("max(\"offset\")").
		Where("workflow_id = ?", rc.workflowID).
		Where("stream_key = ?", streamKey).
		Scan(ctx, &nextOffset)
	if err != nil {
		return fmt.Errorf("durable: stream next offset %s/%s: %w", rc.workflowID, streamKey, err)
	}
	offset := int64(0)
	if nextOffset.Valid {
		offset = nextOffset.Int64 + 1
	}

	row := &durablemodels.StreamModel{
		WorkflowID: rc.workflowID,
		StreamKey:  streamKey,
		Offset:     offset,
		Value:      storagemodels.JSONBMap(value),
		CreatedAt:  time.Now(),
	}
	if _, err := rc.rt.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("durable: write stream %s/%s: %w", rc.workflowID, streamKey, err)
	}

	// RunContext only persists the row here; the NOTIFY fan-out is the stream transport's
	// concern, fired by whichever writer owns the listener connection.
	return nil
}

// ReadStream reads all stream rows for a key from a given offset (inclusive), ascending.
func (rc *RunContext) ReadStream(ctx context.Context, streamKey string, fromOffset int64) ([]*durablemodels.StreamModel, error) {
	var rows []*durablemodels.StreamModel
	err := rc.rt.db.NewSelect().
		Model(&rows).
		Where("workflow_id = ?", rc.workflowID).
		Where("stream_key = ?", streamKey).
		Where("\"offset\" >= ?", fromOffset).
		OrderExpr("\"offset\" ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("durable: read stream %s/%s: %w", rc.workflowID, streamKey, err)
	}
	return rows, nil
}

// StartRecoverySweeper launches the crash-recovery loop: a cron job that finds
// workflow_status rows stuck in "running" whose owning worker has gone silent, and
// re-enqueues them so another worker can resume from the last checkpoint. Scheduling goes
// through cron.Cron, the same machinery internal/application/trigger uses for its own
// periodic work.
func (r *WorkflowRuntime) StartRecoverySweeper(ctx context.Context) error {
	r.cron = cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(r.cfg.RecoveryCronSpec)
	if err != nil {
		return fmt.Errorf("durable: parse recovery cron spec %q: %w", r.cfg.RecoveryCronSpec, err)
	}

	r.cron.Schedule(schedule, cron.FuncJob(func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), r.cfg.RecoveryScanInterval)
		defer cancel()
		if err := r.sweepStuckWorkflows(sweepCtx); err != nil && r.log != nil {
			r.log.ErrorContext(sweepCtx, "durable: recovery sweep failed", "error", err)
		}
	}))
	r.cron.Start()

	go func() {
		<-ctx.Done()
		stopCtx := r.cron.Stop()
		<-stopCtx.Done()
	}()
	return nil
}

// sweepStuckWorkflows finds workflows still "running" after the stale threshold and
// re-enqueues them, incrementing the backing execution row's failure counters. This is the
// actual recovery path; the legacy execution_claims table (ExecutionClaimModel) is never
// consulted here and remains an inert compatibility shim.
func (r *WorkflowRuntime) sweepStuckWorkflows(ctx context.Context) error {
	staleBefore := time.Now().Add(-r.cfg.RecoveryScanInterval * 2)

	var stuck []*durablemodels.WorkflowStatusModel
	err := r.db.NewSelect().
		Model(&stuck).
		Where("status = ?", durablemodels.WorkflowStatusRunning).
		Where("updated_at < ?", staleBefore).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("durable: find stuck workflows: %w", err)
	}

	for _, wf := range stuck {
		if err := r.store.RecordFailure(ctx, wf.WorkflowID, "recovery sweep: worker presumed dead"); err != nil {
			if r.log != nil {
				r.log.WarnContext(ctx, "durable: record failure during sweep", "workflow_id", wf.WorkflowID, "error", err)
			}
		}
		if _, err := r.db.NewUpdate().
			Model((*durablemodels.WorkflowStatusModel)(nil)).
			Set("status = ?", durablemodels.WorkflowStatusEnqueued).
			Where("workflow_id = ?", wf.WorkflowID).
			Exec(ctx); err != nil {
			return fmt.Errorf("durable: reset stuck workflow %s: %w", wf.WorkflowID, err)
		}
		if err := r.queue.Requeue(ctx, wf.QueueName, wf.WorkflowID); err != nil {
			return fmt.Errorf("durable: re-enqueue stuck workflow %s: %w", wf.WorkflowID, err)
		}
		if r.log != nil {
			r.log.InfoContext(ctx, "durable: recovered stuck workflow", "workflow_id", wf.WorkflowID)
		}
	}
	return nil
}

// StartQueueWorker launches concurrency goroutines that each loop Dequeue -> RunWorkflow
// against queueName until ctx is cancelled, so one worker process has at most concurrency
// workflows in flight. An empty queue backs each goroutine off by pollInterval before
// trying again rather than busy-polling Postgres.
func (r *WorkflowRuntime) StartQueueWorker(ctx context.Context, queueName string, concurrency int, pollInterval time.Duration) {
	if concurrency <= 0 {
		concurrency = 1
	}
	for i := 0; i < concurrency; i++ {
		go r.runQueueWorkerLoop(ctx, queueName, pollInterval)
	}
}

func (r *WorkflowRuntime) runQueueWorkerLoop(ctx context.Context, queueName string, pollInterval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, err := r.queue.Dequeue(ctx, queueName, r.workerID)
		if err != nil {
			if !errors.Is(err, ErrQueueItemNotFound) && r.log != nil {
				r.log.ErrorContext(ctx, "durable: dequeue failed", "queue", queueName, "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollInterval):
			}
			continue
		}

		if err := r.RunWorkflow(ctx, item.WorkflowID); err != nil && r.log != nil {
			r.log.ErrorContext(ctx, "durable: workflow run failed", "workflow_id", item.WorkflowID, "error", err)
		}
	}
}
