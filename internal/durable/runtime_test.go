package durable

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	durablemodels "github.com/flowforge/orchestrator/internal/durable/models"
)

func TestWorkflowRuntime_StartWorkflowRequiresRegistration(t *testing.T) {
	db := setupDB(t)
	rt, _, _ := newTestRuntime(t, db)

	err := rt.StartWorkflow(context.Background(), "unknown", "wf-1", "executions", nil)
	assert.ErrorIs(t, err, ErrWorkflowNotRegistered)
}

func TestWorkflowRuntime_StartAndRunWorkflow(t *testing.T) {
	db := setupDB(t)
	rt, queue, _ := newTestRuntime(t, db)
	ctx := context.Background()

	rt.RegisterWorkflow("echo", func(ctx context.Context, rc *RunContext, input map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"echo": input["msg"]}, nil
	})

	require.NoError(t, rt.StartWorkflow(ctx, "echo", "wf-1", "executions", map[string]interface{}{"msg": "hello"}))

	item, err := queue.Dequeue(ctx, "executions", "worker-test")
	require.NoError(t, err)
	require.NoError(t, rt.RunWorkflow(ctx, item.WorkflowID))

	status, err := rt.GetStatus(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, durablemodels.WorkflowStatusSuccess, status.Status)
	assert.Equal(t, "hello", status.Result["echo"])
}

func TestWorkflowRuntime_StartWorkflowIdempotent(t *testing.T) {
	db := setupDB(t)
	rt, _, _ := newTestRuntime(t, db)
	ctx := context.Background()

	rt.RegisterWorkflow("noop", func(ctx context.Context, rc *RunContext, input map[string]interface{}) (map[string]interface{}, error) {
		return nil, nil
	})

	require.NoError(t, rt.StartWorkflow(ctx, "noop", "wf-1", "executions", nil))
	require.NoError(t, rt.StartWorkflow(ctx, "noop", "wf-1", "executions", nil))

	count, err := db.NewSelect().
		Model((*durablemodels.WorkflowStatusModel)(nil)).
		Where("workflow_id = ?", "wf-1").
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// resetToEnqueued simulates a crash-recovery resume by putting the workflow back on the
// runnable path after a completed (or interrupted) run.
func resetToEnqueued(t *testing.T, db *bun.DB, workflowID string) {
	t.Helper()
	_, err := db.NewUpdate().
		Model((*durablemodels.WorkflowStatusModel)(nil)).
		Set("status = ?", durablemodels.WorkflowStatusEnqueued).
		Where("workflow_id = ?", workflowID).
		Exec(context.Background())
	require.NoError(t, err)
}

func TestWorkflowRuntime_RunStepCheckpointSkipsReplay(t *testing.T) {
	db := setupDB(t)
	rt, _, _ := newTestRuntime(t, db)
	ctx := context.Background()

	var invocations int32
	rt.RegisterWorkflow("checkpointed", func(ctx context.Context, rc *RunContext, input map[string]interface{}) (map[string]interface{}, error) {
		out, err := rc.RunStep(ctx, "compute", func(ctx context.Context) (map[string]interface{}, error) {
			atomic.AddInt32(&invocations, 1)
			return map[string]interface{}{"answer": float64(42)}, nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})

	require.NoError(t, rt.StartWorkflow(ctx, "checkpointed", "wf-1", "executions", nil))
	require.NoError(t, rt.RunWorkflow(ctx, "wf-1"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&invocations))

	resetToEnqueued(t, db, "wf-1")
	require.NoError(t, rt.RunWorkflow(ctx, "wf-1"))

	assert.EqualValues(t, 1, atomic.LoadInt32(&invocations), "a checkpointed step must not re-run")

	steps, err := rt.ListWorkflowSteps(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "compute", steps[0].StepName)
	assert.Equal(t, float64(42), steps[0].Output["answer"])
}

func TestWorkflowRuntime_RunStepPersistsErrors(t *testing.T) {
	db := setupDB(t)
	rt, _, _ := newTestRuntime(t, db)
	ctx := context.Background()

	var invocations int32
	rt.RegisterWorkflow("failing", func(ctx context.Context, rc *RunContext, input map[string]interface{}) (map[string]interface{}, error) {
		return rc.RunStep(ctx, "explode", func(ctx context.Context) (map[string]interface{}, error) {
			atomic.AddInt32(&invocations, 1)
			return nil, errors.New("step exploded")
		})
	})

	require.NoError(t, rt.StartWorkflow(ctx, "failing", "wf-1", "executions", nil))
	err := rt.RunWorkflow(ctx, "wf-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step exploded")

	status, err := rt.GetStatus(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, durablemodels.WorkflowStatusError, status.Status)

	// Replay returns the persisted error without re-invoking the body.
	resetToEnqueued(t, db, "wf-1")
	err = rt.RunWorkflow(ctx, "wf-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step exploded")
	assert.EqualValues(t, 1, atomic.LoadInt32(&invocations))
}

func TestWorkflowRuntime_DurableOperationsForbiddenInsideStep(t *testing.T) {
	db := setupDB(t)
	rt, _, _ := newTestRuntime(t, db)
	ctx := context.Background()

	var sendErr, recvErr, stepErr error
	rt.RegisterWorkflow("nested", func(ctx context.Context, rc *RunContext, input map[string]interface{}) (map[string]interface{}, error) {
		return rc.RunStep(ctx, "outer", func(ctx context.Context) (map[string]interface{}, error) {
			sendErr = rc.Send(ctx, "other", "topic", nil)
			_, recvErr = rc.Recv(ctx, "topic", time.Millisecond)
			_, stepErr = rc.RunStep(ctx, "inner", func(ctx context.Context) (map[string]interface{}, error) {
				return nil, nil
			})
			return nil, nil
		})
	})

	require.NoError(t, rt.StartWorkflow(ctx, "nested", "wf-1", "executions", nil))
	require.NoError(t, rt.RunWorkflow(ctx, "wf-1"))

	assert.ErrorIs(t, sendErr, ErrOperationForbiddenInStep)
	assert.ErrorIs(t, recvErr, ErrOperationForbiddenInStep)
	assert.ErrorIs(t, stepErr, ErrOperationForbiddenInStep)
}

func TestWorkflowRuntime_SendRecvRoundTrip(t *testing.T) {
	db := setupDB(t)
	rt, _, _ := newTestRuntime(t, db)
	ctx := context.Background()

	rt.RegisterWorkflow("receiver", func(ctx context.Context, rc *RunContext, input map[string]interface{}) (map[string]interface{}, error) {
		recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		payload, err := rc.Recv(recvCtx, "greeting", 10*time.Millisecond)
		if err != nil {
			return nil, err
		}
		return payload, nil
	})

	require.NoError(t, rt.StartWorkflow(ctx, "receiver", "wf-recv", "executions", nil))
	require.NoError(t, rt.SendSignal(ctx, "wf-recv", "greeting", map[string]interface{}{"text": "hi"}))
	require.NoError(t, rt.RunWorkflow(ctx, "wf-recv"))

	status, err := rt.GetStatus(ctx, "wf-recv")
	require.NoError(t, err)
	assert.Equal(t, "hi", status.Result["text"])
}

func TestWorkflowRuntime_RecvReplaysCheckpointedPayload(t *testing.T) {
	db := setupDB(t)
	rt, _, _ := newTestRuntime(t, db)
	ctx := context.Background()

	rt.RegisterWorkflow("receiver", func(ctx context.Context, rc *RunContext, input map[string]interface{}) (map[string]interface{}, error) {
		recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return rc.Recv(recvCtx, "greeting", 10*time.Millisecond)
	})

	require.NoError(t, rt.StartWorkflow(ctx, "receiver", "wf-recv", "executions", nil))
	require.NoError(t, rt.SendSignal(ctx, "wf-recv", "greeting", map[string]interface{}{"text": "hi"}))
	require.NoError(t, rt.RunWorkflow(ctx, "wf-recv"))

	// The message is consumed; a replayed body must still see the same payload instead of
	// blocking until its timeout.
	resetToEnqueued(t, db, "wf-recv")
	require.NoError(t, rt.RunWorkflow(ctx, "wf-recv"))

	status, err := rt.GetStatus(ctx, "wf-recv")
	require.NoError(t, err)
	assert.Equal(t, durablemodels.WorkflowStatusSuccess, status.Status)
	assert.Equal(t, "hi", status.Result["text"])
}

func TestWorkflowRuntime_WriteStreamAssignsDenseOffsets(t *testing.T) {
	db := setupDB(t)
	rt, _, _ := newTestRuntime(t, db)
	ctx := context.Background()

	rt.RegisterWorkflow("streamer", func(ctx context.Context, rc *RunContext, input map[string]interface{}) (map[string]interface{}, error) {
		for i := 0; i < 3; i++ {
			if err := rc.WriteStream(ctx, "events", map[string]interface{}{"i": i}); err != nil {
				return nil, err
			}
		}
		rows, err := rc.ReadStream(ctx, "events", 1)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"tail": len(rows)}, nil
	})

	require.NoError(t, rt.StartWorkflow(ctx, "streamer", "wf-stream", "executions", nil))
	require.NoError(t, rt.RunWorkflow(ctx, "wf-stream"))

	var rows []*durablemodels.StreamModel
	require.NoError(t, db.NewSelect().
		Model(&rows).
		Where("workflow_id = ?", "wf-stream").
		OrderExpr("\"offset\" ASC").
		Scan(ctx))
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.EqualValues(t, i, row.Offset)
	}

	status, err := rt.GetStatus(ctx, "wf-stream")
	require.NoError(t, err)
	assert.Equal(t, float64(2), status.Result["tail"], "ReadStream from offset 1 sees two rows")
}

func TestWorkflowRuntime_CancelWorkflow(t *testing.T) {
	db := setupDB(t)
	rt, _, _ := newTestRuntime(t, db)
	ctx := context.Background()

	var ran int32
	rt.RegisterWorkflow("cancellable", func(ctx context.Context, rc *RunContext, input map[string]interface{}) (map[string]interface{}, error) {
		atomic.AddInt32(&ran, 1)
		return nil, nil
	})

	require.NoError(t, rt.StartWorkflow(ctx, "cancellable", "wf-1", "executions", nil))
	require.NoError(t, rt.CancelWorkflow(ctx, "wf-1"))

	// A worker that dequeues the cancelled workflow must not run its body.
	require.NoError(t, rt.RunWorkflow(ctx, "wf-1"))
	assert.EqualValues(t, 0, atomic.LoadInt32(&ran))

	status, err := rt.GetStatus(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, durablemodels.WorkflowStatusCancelled, status.Status)
}

func TestWorkflowRuntime_CancelWorkflowDoesNotTouchTerminal(t *testing.T) {
	db := setupDB(t)
	rt, _, _ := newTestRuntime(t, db)
	ctx := context.Background()

	rt.RegisterWorkflow("quick", func(ctx context.Context, rc *RunContext, input map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"ok": true}, nil
	})

	require.NoError(t, rt.StartWorkflow(ctx, "quick", "wf-1", "executions", nil))
	require.NoError(t, rt.RunWorkflow(ctx, "wf-1"))
	require.NoError(t, rt.CancelWorkflow(ctx, "wf-1"))

	status, err := rt.GetStatus(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, durablemodels.WorkflowStatusSuccess, status.Status)
}

func TestWorkflowRuntime_SweepStuckWorkflows(t *testing.T) {
	db := setupDB(t)
	rt, queue, store := newTestRuntime(t, db)
	ctx := context.Background()

	rt.RegisterWorkflow("stuck", func(ctx context.Context, rc *RunContext, input map[string]interface{}) (map[string]interface{}, error) {
		return nil, nil
	})

	// Back the workflow with an execution row so the sweep can record the failure.
	exec := &durablemodels.ExecutionModel{ID: "wf-stuck", FlowID: "flow-1", OwnerID: "owner-1"}
	require.NoError(t, store.Create(ctx, exec))

	require.NoError(t, rt.StartWorkflow(ctx, "stuck", "wf-stuck", "executions", nil))
	_, err := queue.Dequeue(ctx, "executions", "worker-dead")
	require.NoError(t, err)

	// Pretend the claiming worker died long ago.
	stale := time.Now().Add(-time.Hour)
	_, err = db.NewUpdate().
		Model((*durablemodels.WorkflowStatusModel)(nil)).
		Set("status = ?", durablemodels.WorkflowStatusRunning).
		Set("updated_at = ?", stale).
		Where("workflow_id = ?", "wf-stuck").
		Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, rt.sweepStuckWorkflows(ctx))

	status, err := rt.GetStatus(ctx, "wf-stuck")
	require.NoError(t, err)
	assert.Equal(t, durablemodels.WorkflowStatusEnqueued, status.Status)

	// The queue claim was reset, so another worker can pick the workflow up again.
	item, err := queue.Dequeue(ctx, "executions", "worker-new")
	require.NoError(t, err)
	assert.Equal(t, "wf-stuck", item.WorkflowID)

	got, err := store.Get(ctx, "wf-stuck")
	require.NoError(t, err)
	assert.Equal(t, 1, got.FailureCount)
}
