package durable

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/flowforge/orchestrator/internal/application/engine"
	"github.com/flowforge/orchestrator/internal/application/observer"
	"github.com/flowforge/orchestrator/internal/config"
	durablemodels "github.com/flowforge/orchestrator/internal/durable/models"
	"github.com/flowforge/orchestrator/internal/infrastructure/storage"
	storagemodels "github.com/flowforge/orchestrator/internal/infrastructure/storage/models"
	"github.com/flowforge/orchestrator/pkg/executor"
)

// stubExecutor runs nodes by config convention: "output" is returned as-is, "sleepMs"
// delays first (honoring cancellation).
type stubExecutor struct{}

func (s *stubExecutor) Validate(config map[string]interface{}) error { return nil }

func (s *stubExecutor) Execute(ctx context.Context, config map[string]interface{}, input interface{}) (interface{}, error) {
	if ms, ok := config["sleepMs"].(float64); ok {
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if out, ok := config["output"].(map[string]interface{}); ok {
		return out, nil
	}
	return map[string]interface{}{"ok": true}, nil
}

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		MaxConcurrency: 4,
		NodeTimeout:    10 * time.Second,
		FlowTimeout:    30 * time.Second,
	}
}

// newTestExecutionWorkflow wires the full durable stack over one test database, with a
// stub node executor behind the real DAG executor.
func newTestExecutionWorkflow(t *testing.T, db *bun.DB) (*ExecutionWorkflow, *WorkflowRuntime, *ExecutionStore) {
	t.Helper()
	rt, _, store := newTestRuntime(t, db)

	registry := executor.NewManager()
	require.NoError(t, registry.Register("test", &stubExecutor{}))
	nodeExec := engine.NewNodeExecutor(registry)
	dagExec := engine.NewDAGExecutor(nodeExec, observer.NewObserverManager())

	workflowRepo := storage.NewWorkflowRepository(db)
	ew := NewExecutionWorkflow(rt, store, workflowRepo, dagExec, nil, testEngineConfig(), nil)
	return ew, rt, store
}

// createTestFlow persists a two-node flow a -> b and returns its id. The emitter variant
// adds a node whose output raises domain events.
func createTestFlow(t *testing.T, db *bun.DB, emitEvents []interface{}) string {
	t.Helper()

	nodeA := &storagemodels.NodeModel{
		NodeID: "a",
		Name:   "A",
		Type:   "test",
		Config: storagemodels.JSONBMap{"output": map[string]interface{}{"from": "a"}},
	}
	if emitEvents != nil {
		nodeA.Config = storagemodels.JSONBMap{
			"output": map[string]interface{}{"from": "a", "_emitEvents": emitEvents},
		}
	}

	workflow := &storagemodels.WorkflowModel{
		Name:      "durable test flow",
		Status:    "active",
		Version:   1,
		Variables: storagemodels.JSONBMap{},
		Metadata:  storagemodels.JSONBMap{},
		Nodes: []*storagemodels.NodeModel{
			nodeA,
			{
				NodeID: "b",
				Name:   "B",
				Type:   "test",
				Config: storagemodels.JSONBMap{"output": map[string]interface{}{"from": "b"}},
			},
		},
		Edges: []*storagemodels.EdgeModel{
			{EdgeID: "e1", FromNodeID: "a", ToNodeID: "b", Condition: storagemodels.JSONBMap{}},
		},
	}
	require.NoError(t, storage.NewWorkflowRepository(db).Create(context.Background(), workflow))
	return workflow.ID.String()
}

func streamValues(t *testing.T, db *bun.DB, workflowID string) []map[string]interface{} {
	t.Helper()
	var rows []*durablemodels.StreamModel
	require.NoError(t, db.NewSelect().
		Model(&rows).
		Where("workflow_id = ?", workflowID).
		Where("stream_key = ?", "events").
		OrderExpr("\"offset\" ASC").
		Scan(context.Background()))
	out := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]interface{}(r.Value))
	}
	return out
}

func TestExecutionWorkflow_CreateRejectsExcessiveDepth(t *testing.T) {
	db := setupDB(t)
	ew, _, _ := newTestExecutionWorkflow(t, db)

	parent := "exe_parent"
	_, err := ew.Create(context.Background(), CreateInput{
		FlowID:            "flow-1",
		OwnerID:           "owner-1",
		ParentExecutionID: &parent,
		RootExecutionID:   parent,
		ExecutionDepth:    MaxExecutionDepth + 1,
	})
	assert.ErrorIs(t, err, ErrMaxDepthExceeded)
}

func TestExecutionWorkflow_CreatePersistsRowAndQueuesWorkflow(t *testing.T) {
	db := setupDB(t)
	ew, rt, store := newTestExecutionWorkflow(t, db)
	ctx := context.Background()

	flowID := createTestFlow(t, db, nil)
	row, err := ew.Create(ctx, CreateInput{FlowID: flowID, OwnerID: "owner-1"})
	require.NoError(t, err)

	got, err := store.Get(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, durablemodels.ExecutionStatusCreated, got.Status)
	assert.Equal(t, row.ID, got.RootExecutionID)

	status, err := rt.GetStatus(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, "execution", status.Name)
	assert.Equal(t, durablemodels.WorkflowStatusEnqueued, status.Status)

	count, err := db.NewSelect().
		Model((*durablemodels.DurableQueueModel)(nil)).
		Where("workflow_id = ?", row.ID).
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestExecutionWorkflow_HappyPathRoot(t *testing.T) {
	db := setupDB(t)
	ew, rt, store := newTestExecutionWorkflow(t, db)
	ctx := context.Background()

	flowID := createTestFlow(t, db, nil)
	row, err := ew.Create(ctx, CreateInput{FlowID: flowID, OwnerID: "owner-1"})
	require.NoError(t, err)

	// Roots wait for an explicit start signal.
	require.NoError(t, rt.SendSignal(ctx, row.ID, startSignalTopic, map[string]interface{}{}))
	require.NoError(t, rt.RunWorkflow(ctx, row.ID))

	got, err := store.Get(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, durablemodels.ExecutionStatusCompleted, got.Status)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)

	values := streamValues(t, db, row.ID)
	require.NotEmpty(t, values)
	assert.Equal(t, "EXECUTION_CREATED", values[0]["type"], "offset 0 is always the creation event")

	types := make(map[string]bool)
	for _, v := range values {
		if s, ok := v["type"].(string); ok {
			types[s] = true
		}
	}
	assert.True(t, types["execution.started"], "engine lifecycle events land on the stream, got %v", types)
	assert.True(t, types["execution.completed"], "terminal engine event lands on the stream, got %v", types)
	assert.True(t, types["STREAM_CLOSED"], "a terminal run closes its stream, got %v", types)
}

func TestExecutionWorkflow_SpawnsChildrenFromEmittedEvents(t *testing.T) {
	db := setupDB(t)
	ew, rt, store := newTestExecutionWorkflow(t, db)
	ctx := context.Background()

	flowID := createTestFlow(t, db, []interface{}{
		map[string]interface{}{"name": "t1", "payload": map[string]interface{}{"k": "v"}},
		map[string]interface{}{"name": "t2"},
	})
	row, err := ew.Create(ctx, CreateInput{
		FlowID:      flowID,
		OwnerID:     "owner-1",
		Integration: map[string]interface{}{"channel": "slack"},
	})
	require.NoError(t, err)

	require.NoError(t, rt.SendSignal(ctx, row.ID, startSignalTopic, map[string]interface{}{}))
	require.NoError(t, rt.RunWorkflow(ctx, row.ID))

	parent, err := store.Get(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, durablemodels.ExecutionStatusCompleted, parent.Status,
		"the parent completes without waiting for its children")

	children, err := store.GetChildExecutions(ctx, row.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	for _, child := range children {
		assert.Equal(t, row.ID, child.RootExecutionID)
		assert.Equal(t, 1, child.ExecutionDepth)
		assert.Equal(t, flowID, child.FlowID)
		assert.Equal(t, "slack", child.Integration["channel"], "integration context propagates")

		status, err := rt.GetStatus(ctx, child.ID)
		require.NoError(t, err)
		assert.Equal(t, "execution", status.Name, "each child gets its own durable workflow")
	}

	spawned := 0
	for _, v := range streamValues(t, db, row.ID) {
		if v["type"] == "CHILD_EXECUTION_SPAWNED" {
			spawned++
		}
	}
	assert.Equal(t, 2, spawned, "every spawn lands on the parent's own stream")
}

func TestExecutionWorkflow_DepthLimitRecordsSpawnFailure(t *testing.T) {
	db := setupDB(t)
	ew, rt, store := newTestExecutionWorkflow(t, db)
	ctx := context.Background()

	flowID := createTestFlow(t, db, []interface{}{
		map[string]interface{}{"name": "again"},
	})

	// A child already at the maximum depth: its own run succeeds, but the event it raises
	// must not produce a depth-101 execution.
	rootID := "exe_depth_root"
	require.NoError(t, store.Create(ctx, &durablemodels.ExecutionModel{
		ID: rootID, FlowID: flowID, OwnerID: "owner-1",
	}))
	row, err := ew.Create(ctx, CreateInput{
		FlowID:            flowID,
		OwnerID:           "owner-1",
		ParentExecutionID: &rootID,
		RootExecutionID:   rootID,
		ExecutionDepth:    MaxExecutionDepth,
	})
	require.NoError(t, err)

	// Children self-start; no external signal needed.
	require.NoError(t, rt.RunWorkflow(ctx, row.ID))

	got, err := store.Get(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, durablemodels.ExecutionStatusCompleted, got.Status)

	children, err := store.GetChildExecutions(ctx, row.ID)
	require.NoError(t, err)
	assert.Empty(t, children, "no execution may exist past the depth ceiling")

	failed := false
	for _, v := range streamValues(t, db, row.ID) {
		if v["type"] == "CHILD_EXECUTION_SPAWN_FAILED" {
			failed = true
		}
	}
	assert.True(t, failed, "the refused spawn is recorded on the parent's stream")
}

func TestExecutionWorkflow_StopCommandCancelsFlow(t *testing.T) {
	db := setupDB(t)
	ew, rt, store := newTestExecutionWorkflow(t, db)
	ctx := context.Background()

	// Slow first node so the command poller observes the stop mid-flow.
	workflow := &storagemodels.WorkflowModel{
		Name:      "slow flow",
		Status:    "active",
		Version:   1,
		Variables: storagemodels.JSONBMap{},
		Metadata:  storagemodels.JSONBMap{},
		Nodes: []*storagemodels.NodeModel{
			{NodeID: "slow", Name: "Slow", Type: "test", Config: storagemodels.JSONBMap{"sleepMs": 1500}},
			{NodeID: "after", Name: "After", Type: "test", Config: storagemodels.JSONBMap{}},
		},
		Edges: []*storagemodels.EdgeModel{
			{EdgeID: "e1", FromNodeID: "slow", ToNodeID: "after", Condition: storagemodels.JSONBMap{}},
		},
	}
	require.NoError(t, storage.NewWorkflowRepository(db).Create(ctx, workflow))

	row, err := ew.Create(ctx, CreateInput{FlowID: workflow.ID.String(), OwnerID: "owner-1"})
	require.NoError(t, err)

	// The stop command is already queued when the flow starts; the in-step poller applies
	// it while the slow node is still sleeping.
	require.NoError(t, ew.SendCommand(ctx, row.ID, "stop"))
	require.NoError(t, rt.SendSignal(ctx, row.ID, startSignalTopic, map[string]interface{}{}))

	err = rt.RunWorkflow(ctx, row.ID)
	require.Error(t, err)

	got, err := store.Get(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, durablemodels.ExecutionStatusStopped, got.Status,
		"a debugger stop is a cancellation, not a failure")
}

func TestControlPlane_RoundTrip(t *testing.T) {
	db := setupDB(t)
	ew, rt, store := newTestExecutionWorkflow(t, db)
	ctx := context.Background()

	cp := NewControlPlane(rt, store, nil, ew)

	flowID := createTestFlow(t, db, nil)
	row, err := cp.Create(ctx, CreateInput{FlowID: flowID, OwnerID: "owner-1"})
	require.NoError(t, err)

	require.NoError(t, cp.Start(ctx, row.ID))
	require.NoError(t, rt.RunWorkflow(ctx, row.ID))

	details, err := cp.GetExecutionDetails(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, durablemodels.ExecutionStatusCompleted, details.Execution.Status)
	require.NotNil(t, details.Status)
	assert.Equal(t, durablemodels.WorkflowStatusSuccess, details.Status.Status)
	assert.NotEmpty(t, details.Steps, "checkpointed steps surface in the details view")

	tree, err := cp.GetExecutionsTree(ctx, row.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, row.ID, tree[0].ID)

	roots, err := cp.GetRootExecutions(ctx, flowID, 10, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, row.ID, roots[0].ID)
}

func TestControlPlane_PauseCommandsLandOnTopic(t *testing.T) {
	db := setupDB(t)
	ew, rt, store := newTestExecutionWorkflow(t, db)
	ctx := context.Background()

	cp := NewControlPlane(rt, store, nil, ew)
	require.NoError(t, cp.Pause(ctx, "exe_target"))
	require.NoError(t, cp.Resume(ctx, "exe_target"))

	var msgs []*durablemodels.WorkflowMessageModel
	require.NoError(t, db.NewSelect().
		Model(&msgs).
		Where("recipient_workflow_id = ?", "exe_target").
		Where("topic = ?", commandTopic).
		OrderExpr("id ASC").
		Scan(ctx))
	require.Len(t, msgs, 2)
	assert.Equal(t, "pause", msgs[0].Payload["action"])
	assert.Equal(t, "resume", msgs[1].Payload["action"])
}

func TestControlPlane_CancelQueuedExecution(t *testing.T) {
	db := setupDB(t)
	ew, rt, store := newTestExecutionWorkflow(t, db)
	ctx := context.Background()

	cp := NewControlPlane(rt, store, nil, ew)

	flowID := createTestFlow(t, db, nil)
	row, err := cp.Create(ctx, CreateInput{FlowID: flowID, OwnerID: "owner-1"})
	require.NoError(t, err)

	require.NoError(t, cp.CancelQueuedExecution(ctx, row.ID))

	// A worker that dequeues the cancelled workflow does nothing.
	require.NoError(t, rt.RunWorkflow(ctx, row.ID))
	status, err := rt.GetStatus(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, durablemodels.WorkflowStatusCancelled, status.Status)

	got, err := store.Get(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, durablemodels.ExecutionStatusCreated, got.Status,
		"a never-started execution keeps its created status")
}
