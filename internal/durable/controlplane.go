package durable

import (
	"context"
	"fmt"
	"time"

	durablemodels "github.com/flowforge/orchestrator/internal/durable/models"
)

// ControlPlane is the single entry point external callers (the REST API, the service API,
// triggers) use to create, start, and supervise durable executions, without
// any of them reaching into the runtime/store/stream internals directly. It is a thin
// façade - every method here is a couple of calls into the store, runtime, stream
// transport, and execution workflow - the same way ExecutionManager fronts the
// DAGExecutor/ObserverManager for its own callers.
type ControlPlane struct {
	runtime   *WorkflowRuntime
	store     *ExecutionStore
	stream    *StreamTransport
	execution *ExecutionWorkflow
}

// NewControlPlane wires the façade over an already-constructed durable stack.
func NewControlPlane(runtime *WorkflowRuntime, store *ExecutionStore, stream *StreamTransport, execution *ExecutionWorkflow) *ControlPlane {
	return &ControlPlane{
		runtime:   runtime,
		store:     store,
		stream:    stream,
		execution: execution,
	}
}

// Create allocates a new execution row and its durable workflow, queued but not yet
// running. Callers that want it to run immediately should follow with Start.
func (cp *ControlPlane) Create(ctx context.Context, in CreateInput) (*durablemodels.ExecutionModel, error) {
	return cp.execution.Create(ctx, in)
}

// Start unblocks a created execution's initialization wait, letting its worker begin
// running the flow. Root executions never self-send the start signal the way a
// spawned child does, so this is the only way a root execution ever begins running.
func (cp *ControlPlane) Start(ctx context.Context, executionID string) error {
	return cp.runtime.SendSignal(ctx, executionID, startSignalTopic, map[string]interface{}{})
}

// Stop requests a running execution halt at its next node boundary. The
// flow ends with engine.ErrFlowCancelled, and the workflow body records status "stopped".
func (cp *ControlPlane) Stop(ctx context.Context, executionID string) error {
	return cp.execution.SendCommand(ctx, executionID, "stop")
}

// Pause requests a running execution suspend after its current node finishes. The
// execution stays in memory on its worker, waiting for Resume or Step.
func (cp *ControlPlane) Pause(ctx context.Context, executionID string) error {
	return cp.execution.SendCommand(ctx, executionID, "pause")
}

// Resume requests a paused execution continue running.
func (cp *ControlPlane) Resume(ctx context.Context, executionID string) error {
	return cp.execution.SendCommand(ctx, executionID, "resume")
}

// Step requests a paused execution run exactly one more node, then re-pause.
func (cp *ControlPlane) Step(ctx context.Context, executionID string) error {
	return cp.execution.SendCommand(ctx, executionID, "step")
}

// ExecutionDetails is the control plane's read model for a single execution: its row, plus a cursor onto
// its own step checkpoints so a caller can show replay/debug history alongside status.
type ExecutionDetails struct {
	Execution *durablemodels.ExecutionModel      `json:"execution"`
	Status    *durablemodels.WorkflowStatusModel `json:"status,omitempty"`
	Steps     []*durablemodels.WorkflowStepModel `json:"steps,omitempty"`
}

// GetExecutionDetails returns an execution's row plus its durable workflow status and
// checkpointed steps.
func (cp *ControlPlane) GetExecutionDetails(ctx context.Context, executionID string) (*ExecutionDetails, error) {
	row, err := cp.store.Get(ctx, executionID)
	if err != nil {
		return nil, err
	}

	status, err := cp.runtime.GetStatus(ctx, executionID)
	if err != nil && err != ErrWorkflowNotFound {
		return nil, fmt.Errorf("durable: control plane get execution details %s: %w", executionID, err)
	}

	steps, err := cp.runtime.ListWorkflowSteps(ctx, executionID)
	if err != nil {
		return nil, err
	}

	return &ExecutionDetails{Execution: row, Status: status, Steps: steps}, nil
}

// GetExecutionsTree returns the full BFS-ordered descendant tree rooted at rootExecutionID.
func (cp *ControlPlane) GetExecutionsTree(ctx context.Context, rootExecutionID string) ([]TreeNode, error) {
	return cp.store.GetExecutionTree(ctx, rootExecutionID)
}

// GetRootExecutions lists a flow's root executions (parent_execution_id IS NULL), newest
// first, paginated by createdAt cursor.
func (cp *ControlPlane) GetRootExecutions(ctx context.Context, flowID string, limit int, before *time.Time) ([]*RootExecutionSummary, error) {
	return cp.store.GetRootExecutions(ctx, flowID, limit, before)
}

// SubscribeToExecutionEvents opens a live subscription to an execution's event stream from
// fromOffset, covering both catch-up (already-persisted events) and live push. Cancel the
// returned context.CancelFunc to detach.
func (cp *ControlPlane) SubscribeToExecutionEvents(ctx context.Context, executionID string, fromOffset int64) (<-chan StreamEvent, context.CancelFunc, error) {
	if cp.stream == nil {
		return nil, nil, fmt.Errorf("durable: control plane subscribe: stream transport not configured")
	}
	return cp.stream.Subscribe(ctx, executionID, eventsStreamKey, fromOffset)
}

// CancelQueuedExecution cancels an execution that has not yet started running - unlike Stop,
// which signals an in-flight flow, this marks the workflow_status row cancelled directly so a
// worker that later dequeues it observes the cancellation before ever calling run. Safe to
// call on a running execution too; it only changes outcome for ones still queued.
func (cp *ControlPlane) CancelQueuedExecution(ctx context.Context, executionID string) error {
	return cp.runtime.CancelWorkflow(ctx, executionID)
}
