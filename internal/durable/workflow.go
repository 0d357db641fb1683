package durable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowforge/orchestrator/internal/application/engine"
	"github.com/flowforge/orchestrator/internal/config"
	"github.com/flowforge/orchestrator/internal/domain/repository"
	durablemodels "github.com/flowforge/orchestrator/internal/durable/models"
	"github.com/flowforge/orchestrator/internal/infrastructure/logger"
)

// commandTopic is the fixed Send/Recv topic the execution workflow polls for debugger and
// control-plane commands (pause/resume/step/stop), keeping the command channel out of the
// execution's own input/output payload.
const commandTopic = "control-command"

// startSignalTopic is the Send/Recv topic a "start" control-plane call (or a child's own
// self-send) delivers on, unblocking the initialization phase's wait.
const startSignalTopic = "START_SIGNAL"

const (
	rootStartTimeout  = 300 * time.Second
	childStartTimeout = 10 * time.Second
)

// ExecutionWorkflow is the durable per-execution script. It is registered as a single
// named WorkflowFunc with the runtime, so it gets the checkpoint/replay/recovery guarantees
// for free: the atomic flow-execute step is just one more RunStep call. Its three-phase
// shape (init, atomic execute, finalize) mirrors ExecutionManager's own
// load/create/execute/finalize lifecycle, with checkpointing layered on top.
type ExecutionWorkflow struct {
	runtime         *WorkflowRuntime
	store           *ExecutionStore
	workflowRepo    repository.WorkflowRepository
	dagExecutor     *engine.DAGExecutor
	streamTransport *StreamTransport
	cfg             config.EngineConfig
	log             *logger.Logger
}

// NewExecutionWorkflow wires the durable script to its dependencies and registers it under
// the name "execution" with the given runtime. streamTransport may be nil (events are then
// stored but never push-notified; subscribers fall back to polling).
func NewExecutionWorkflow(rt *WorkflowRuntime, store *ExecutionStore, workflowRepo repository.WorkflowRepository, dagExecutor *engine.DAGExecutor, streamTransport *StreamTransport, cfg config.EngineConfig, log *logger.Logger) *ExecutionWorkflow {
	ew := &ExecutionWorkflow{
		runtime:         rt,
		store:           store,
		workflowRepo:    workflowRepo,
		dagExecutor:     dagExecutor,
		streamTransport: streamTransport,
		cfg:             cfg,
		log:             log,
	}
	rt.RegisterWorkflow("execution", ew.run)
	return ew
}

// CreateInput is the payload a control-plane "create" call passes to StartWorkflow.
type CreateInput struct {
	FlowID            string                        `json:"flow_id"`
	OwnerID           string                        `json:"owner_id"`
	ParentExecutionID *string                       `json:"parent_execution_id,omitempty"`
	RootExecutionID   string                        `json:"root_execution_id,omitempty"`
	ExecutionDepth    int                           `json:"execution_depth"`
	Options           map[string]interface{}        `json:"options,omitempty"`
	Integration       map[string]interface{}        `json:"integration,omitempty"`
	ExternalEvents    []durablemodels.ExternalEvent `json:"external_events,omitempty"`
	Input             map[string]interface{}        `json:"input,omitempty"`
	// TriggerEventName is set when this execution is spawned as a child against a specific
	// emitted event, so disabled-auto-execution/event-bound nodes in the child's flow run.
	TriggerEventName string `json:"-"`
}

// Create allocates a durable execution row and starts its workflow, without running the
// body: create is synchronous bookkeeping, execution happens asynchronously once a worker
// dequeues it.
func (ew *ExecutionWorkflow) Create(ctx context.Context, in CreateInput) (*durablemodels.ExecutionModel, error) {
	if in.ExecutionDepth > MaxExecutionDepth {
		return nil, ErrMaxDepthExceeded
	}

	row := &durablemodels.ExecutionModel{
		FlowID:            in.FlowID,
		OwnerID:           in.OwnerID,
		RootExecutionID:   in.RootExecutionID,
		ParentExecutionID: in.ParentExecutionID,
		ExecutionDepth:    in.ExecutionDepth,
		ExternalEvents:    durablemodels.ExternalEventList(in.ExternalEvents),
	}
	if in.Options != nil {
		row.Options = in.Options
	}
	if in.Integration != nil {
		row.Integration = in.Integration
	}

	if err := ew.store.Create(ctx, row); err != nil {
		return nil, err
	}

	input := in.Input
	if input == nil {
		input = map[string]interface{}{}
	}
	input["_execution_id"] = row.ID
	input["_flow_id"] = row.FlowID
	input["_owner_id"] = row.OwnerID
	input["_root_execution_id"] = row.RootExecutionID
	input["_execution_depth"] = row.ExecutionDepth
	input["_integration"] = map[string]interface{}(row.Integration)
	if row.ParentExecutionID != nil {
		input["_parent_execution_id"] = *row.ParentExecutionID
	}
	if in.TriggerEventName != "" {
		input["_trigger_event_name"] = in.TriggerEventName
	}

	if err := ew.runtime.StartWorkflow(ctx, "execution", row.ID, "executions", input); err != nil {
		return nil, err
	}
	return row, nil
}

// run is the durable workflow body. It has exactly three phases:
// (1) init, (2) one atomic RunStep that drives the graph to completion, (3) a terminal
// status write. Child executions are spawned only after step (2) returns, never from inside
// it, so a crash mid-flow never leaves a half-spawned child behind.
func (ew *ExecutionWorkflow) run(ctx context.Context, rc *RunContext, input map[string]interface{}) (map[string]interface{}, error) {
	executionID, _ := input["_execution_id"].(string)
	flowID, _ := input["_flow_id"].(string)
	isChild := input["_parent_execution_id"] != nil

	// Phase 1: write EXECUTION_CREATED so a late subscriber reading from offset 0 never
	// misses the creation event, self-send START_SIGNAL if this is a child, then block on
	// it. A resumed body skips the write when offset 0 already exists.
	head, err := rc.ReadStream(ctx, eventsStreamKey, 0)
	if err != nil {
		return nil, fmt.Errorf("durable: read stream head: %w", err)
	}
	if len(head) == 0 {
		if err := rc.WriteStream(ctx, eventsStreamKey, executionCreatedStreamValue(input)); err != nil {
			return nil, fmt.Errorf("durable: write EXECUTION_CREATED: %w", err)
		}
	}

	if isChild {
		if err := rc.Send(ctx, executionID, startSignalTopic, map[string]interface{}{}); err != nil {
			return nil, fmt.Errorf("durable: self-send start signal: %w", err)
		}
	}

	timeout := rootStartTimeout
	if isChild {
		timeout = childStartTimeout
	}
	recvCtx, cancel := context.WithTimeout(ctx, timeout)
	_, err = rc.Recv(recvCtx, startSignalTopic, 250*time.Millisecond)
	cancel()
	if err != nil {
		now := time.Now()
		msg := "Execution start timeout"
		_ = ew.store.UpdateExecutionStatus(ctx, StatusUpdate{
			ID:           executionID,
			Status:       durablemodels.ExecutionStatusFailed,
			CompletedAt:  &now,
			ErrorMessage: &msg,
		})
		return nil, fmt.Errorf("durable: %s: %w", msg, err)
	}

	// Phase 1b: init.
	_, err = rc.RunStep(ctx, "init", func(ctx context.Context) (map[string]interface{}, error) {
		now := time.Now()
		return nil, ew.store.UpdateExecutionStatus(ctx, StatusUpdate{
			ID:        executionID,
			Status:    durablemodels.ExecutionStatusRunning,
			StartedAt: &now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("durable: execution init step: %w", err)
	}

	// Phase 2: the atomic flow-execute step. The command-polling loop for pause/resume/step
	// runs concurrently inside this single RunStep invocation, driving the GraphScheduler's
	// DebugController; from the runtime's point of view this is one opaque unit of work.
	// Emitted, still-unprocessed domain events are carried back out under "_childEvents" so
	// the spawn phase can start child workflows outside the step (starting workflows is
	// forbidden from inside a step).
	stepOutput, runErr := rc.RunStep(ctx, "execute", func(stepCtx context.Context) (map[string]interface{}, error) {
		return ew.executeFlow(stepCtx, rc, executionID, flowID, input)
	})

	// Phase 3: terminal status.
	if runErr != nil {
		errMsg := runErr.Error()
		status := durablemodels.ExecutionStatusFailed
		if errors.Is(runErr, engine.ErrFlowCancelled) {
			status = durablemodels.ExecutionStatusStopped
		}
		_, _ = rc.RunStep(ctx, "finalize-error", func(ctx context.Context) (map[string]interface{}, error) {
			now := time.Now()
			return nil, ew.store.UpdateExecutionStatus(ctx, StatusUpdate{
				ID:           executionID,
				Status:       status,
				CompletedAt:  &now,
				ErrorMessage: &errMsg,
			})
		})

		// Phase 2.5 still runs on failure: events emitted by nodes that completed before the
		// one that failed are real domain events regardless of the flow's own outcome.
		if err := ew.spawnChildren(ctx, rc, executionID, stepOutput); err != nil && ew.log != nil {
			ew.log.ErrorContext(ctx, "durable: spawn children failed", "execution_id", executionID, "error", err)
		}
		ew.closeEventStream(ctx, rc, executionID)
		return nil, runErr
	}

	_, _ = rc.RunStep(ctx, "finalize-success", func(ctx context.Context) (map[string]interface{}, error) {
		now := time.Now()
		return nil, ew.store.UpdateExecutionStatus(ctx, StatusUpdate{
			ID:          executionID,
			Status:      durablemodels.ExecutionStatusCompleted,
			CompletedAt: &now,
		})
	})

	// Phase 2.5: spawn children for every event emitted-and-still-unprocessed during the
	// atomic step. This happens here, at the workflow level, after the step has returned and
	// the parent has already reached its own terminal status; a parent never waits on its
	// children's lifecycles.
	if err := ew.spawnChildren(ctx, rc, executionID, stepOutput); err != nil {
		if ew.log != nil {
			ew.log.ErrorContext(ctx, "durable: spawn children failed", "execution_id", executionID, "error", err)
		}
	}

	ew.closeEventStream(ctx, rc, executionID)
	return stepOutput, nil
}

// closeEventStream ends the execution's event stream on every terminal path: a sentinel row
// so tail subscribers have something to observe past the last real event, then the closed
// flag so the transport releases them. Both are best-effort; a lost close never changes the
// execution's own outcome.
func (ew *ExecutionWorkflow) closeEventStream(ctx context.Context, rc *RunContext, executionID string) {
	if err := rc.WriteStream(ctx, eventsStreamKey, map[string]interface{}{"type": "STREAM_CLOSED"}); err != nil && ew.log != nil {
		ew.log.WarnContext(ctx, "durable: write stream close sentinel failed", "execution_id", executionID, "error", err)
	}
	if ew.streamTransport == nil {
		return
	}
	if err := ew.streamTransport.CloseStream(ctx, executionID, eventsStreamKey); err != nil && ew.log != nil {
		ew.log.WarnContext(ctx, "durable: close event stream failed", "execution_id", executionID, "error", err)
	}
}

// childEventStreamValue records a spawn attempt (success or depth-limit failure) on the
// parent's own event stream, so a subscriber watching the parent sees every child it raised
// without having to separately discover and subscribe to each child.
func childEventStreamValue(eventName string, childExecutionID string, failErr error) map[string]interface{} {
	data := map[string]interface{}{"event_name": eventName}
	eventType := "CHILD_EXECUTION_SPAWNED"
	if failErr != nil {
		eventType = "CHILD_EXECUTION_SPAWN_FAILED"
		data["error"] = failErr.Error()
	} else {
		data["child_execution_id"] = childExecutionID
	}
	return map[string]interface{}{"type": eventType, "data": data}
}

// spawnChildren starts one child execution, against the same flow, per emitted-and-still-
// unprocessed domain event carried back in stepOutput["_childEvents"] (populated by
// executeFlow). Each child's TriggerEventName is the event that raised it, so the
// event-bound nodes it listens for unlock via isReachable. A child that would cross
// MaxExecutionDepth is never persisted; the attempt is recorded on the parent's stream
// instead of failing the parent.
func (ew *ExecutionWorkflow) spawnChildren(ctx context.Context, rc *RunContext, executionID string, stepOutput map[string]interface{}) error {
	rawEvents, _ := stepOutput["_childEvents"].([]interface{})
	if len(rawEvents) == 0 {
		return nil
	}

	parent, err := ew.store.Get(ctx, executionID)
	if err != nil {
		return fmt.Errorf("durable: load parent execution %s: %w", executionID, err)
	}

	var firstErr error
	for _, raw := range rawEvents {
		evt, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := evt["name"].(string)
		if name == "" {
			continue
		}
		payload, _ := evt["payload"].(map[string]interface{})

		in := CreateInput{
			FlowID:            parent.FlowID,
			OwnerID:           parent.OwnerID,
			ParentExecutionID: &executionID,
			RootExecutionID:   parent.RootExecutionID,
			ExecutionDepth:    parent.ExecutionDepth + 1,
			Integration:       map[string]interface{}(parent.Integration),
			Input:             payload,
			TriggerEventName:  name,
		}

		child, createErr := ew.Create(ctx, in)
		streamErr := rc.WriteStream(ctx, eventsStreamKey, childEventStreamValue(name, childIDOrEmpty(child), createErr))
		if streamErr != nil && ew.log != nil {
			ew.log.WarnContext(ctx, "durable: write child-spawn stream event failed", "execution_id", executionID, "error", streamErr)
		}
		if createErr != nil {
			if ew.log != nil {
				ew.log.ErrorContext(ctx, "durable: spawn child execution failed", "execution_id", executionID, "event", name, "error", createErr)
			}
			if firstErr == nil {
				firstErr = createErr
			}
		}
	}
	return firstErr
}

func childIDOrEmpty(row *durablemodels.ExecutionModel) string {
	if row == nil {
		return ""
	}
	return row.ID
}

// executionCreatedStreamValue is the first row written to every execution's event stream,
// carrying the execution's identity metadata: owner, root and parent execution IDs, depth,
// integration context.
func executionCreatedStreamValue(input map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{
		"owner_id":            input["_owner_id"],
		"root_execution_id":   input["_root_execution_id"],
		"parent_execution_id": input["_parent_execution_id"],
		"execution_depth":     input["_execution_depth"],
		"integration":         input["_integration"],
	}
	return map[string]interface{}{
		"type": "EXECUTION_CREATED",
		"data": data,
	}
}

// executeFlow loads the flow definition and drives it through the concurrent scheduler,
// returning its final output. Command polling against workflow_messages runs
// alongside via a background goroutine tied to this step's context.
func (ew *ExecutionWorkflow) executeFlow(ctx context.Context, rc *RunContext, executionID, flowID string, input map[string]interface{}) (map[string]interface{}, error) {
	flowUUID, err := uuid.Parse(flowID)
	if err != nil {
		return nil, fmt.Errorf("durable: invalid flow id %s: %w", flowID, err)
	}
	workflowModel, err := ew.workflowRepo.FindByIDWithRelations(ctx, flowUUID)
	if err != nil {
		return nil, fmt.Errorf("durable: load flow %s: %w", flowID, err)
	}
	workflow := engine.WorkflowModelToDomain(workflowModel)

	execState := engine.NewExecutionState(executionID, flowID, workflow, input, workflow.Variables)
	if triggerName, ok := input["_trigger_event_name"].(string); ok {
		execState.TriggerEventName = triggerName
	}
	opts := engine.DefaultExecutionOptions()
	if ew.cfg.MaxConcurrency > 0 {
		opts.MaxParallelism = ew.cfg.MaxConcurrency
	}
	if ew.cfg.NodeTimeout > 0 {
		opts.NodeTimeout = ew.cfg.NodeTimeout
	}
	if ew.cfg.FlowTimeout > 0 {
		opts.Timeout = ew.cfg.FlowTimeout
	}

	scheduler := engine.NewGraphScheduler(ew.dagExecutor, nil)

	// Bridge every engine-level event onto this execution's own stream for the duration of
	// the run. The shared DAGExecutor's observer manager dispatches events for every
	// concurrently running execution, so the publisher filters to its own execution ID and
	// is unregistered as soon as this step returns.
	if mgr := ew.dagExecutor.ObserverManager(); mgr != nil {
		publisher := NewStreamEventPublisher(rc, ew.streamTransport, ew.log)
		if err := mgr.Register(publisher); err != nil && ew.log != nil {
			ew.log.WarnContext(ctx, "durable: register stream publisher failed", "execution_id", executionID, "error", err)
		}
		defer func() { _ = mgr.Unregister(publisher.Name()) }()
	}

	commandCtx, cancelCommands := context.WithCancel(ctx)
	defer cancelCommands()
	go ew.pollCommands(commandCtx, executionID, scheduler.Debugger())

	execErr := scheduler.Execute(ctx, execState, opts)

	// FinalOutput may return the execState's own leaf-node output map by reference; copy
	// before mutating it with "_childEvents" so we never write back into execution state.
	finalOutput := engine.FinalOutput(execState, workflow)
	output := make(map[string]interface{}, len(finalOutput)+1)
	for k, v := range finalOutput {
		output[k] = v
	}
	if unprocessed := execState.UnprocessedEvents(); len(unprocessed) > 0 {
		childEvents := make([]interface{}, 0, len(unprocessed))
		for _, evt := range unprocessed {
			childEvents = append(childEvents, map[string]interface{}{
				"id":         evt.ID,
				"name":       evt.Name,
				"payload":    evt.Payload,
				"emitter_id": evt.EmitterID,
			})
			execState.MarkEventProcessed(evt.ID)
		}
		output["_childEvents"] = childEvents
	}

	if execErr != nil {
		return output, execErr
	}
	return output, nil
}

// pollCommands relays control-plane pause/resume/step/stop requests (sent via SendCommand to
// this execution's workflow ID on commandTopic) to the scheduler's debugger. It talks to the
// database directly rather than through RunContext.Recv, since this goroutine runs inside
// an already-open RunStep and must not itself call RunStep/Send/Recv.
func (ew *ExecutionWorkflow) pollCommands(ctx context.Context, executionID string, debug *engine.DebugController) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cmds, err := ew.fetchPendingCommands(ctx, executionID)
			if err != nil {
				if ew.log != nil {
					ew.log.WarnContext(ctx, "durable: poll commands failed", "execution_id", executionID, "error", err)
				}
				continue
			}
			for _, cmd := range cmds {
				debug.Apply(cmd)
			}
		}
	}
}

// fetchPendingCommands reads and marks delivered any undelivered workflow_messages on
// commandTopic for this execution, translating their payload into DebugCommands.
func (ew *ExecutionWorkflow) fetchPendingCommands(ctx context.Context, executionID string) ([]engine.DebugCommand, error) {
	var rows []*durablemodels.WorkflowMessageModel
	err := ew.runtime.db.NewSelect().
		Model(&rows).
		Where("recipient_workflow_id = ?", executionID).
		Where("topic = ?", commandTopic).
		Where("delivered_at IS NULL").
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cmds := make([]engine.DebugCommand, 0, len(rows))
	now := time.Now()
	for _, row := range rows {
		action, _ := row.Payload["action"].(string)
		switch action {
		case "pause":
			cmds = append(cmds, engine.DebugCommandPause)
		case "resume":
			cmds = append(cmds, engine.DebugCommandResume)
		case "step":
			cmds = append(cmds, engine.DebugCommandStep)
		case "stop":
			cmds = append(cmds, engine.DebugCommandStop)
		}
		if _, err := ew.runtime.db.NewUpdate().
			Model(row).
			Set("delivered_at = ?", now).
			Where("id = ?", row.ID).
			Exec(ctx); err != nil {
			return cmds, err
		}
	}
	return cmds, nil
}

// SendCommand is the control-plane's way of pausing/resuming/stepping/stopping a running
// execution: it writes a workflow_messages row on commandTopic, which the running instance's
// pollCommands goroutine picks up on its next tick.
func (ew *ExecutionWorkflow) SendCommand(ctx context.Context, executionID, action string) error {
	msg := &durablemodels.WorkflowMessageModel{
		RecipientWorkflowID: executionID,
		Topic:               commandTopic,
		SenderStepIndex:     -1,
		Payload:             map[string]interface{}{"action": action},
		EnqueuedAt:          time.Now(),
	}
	_, err := ew.runtime.db.NewInsert().Model(msg).Exec(ctx)
	if err != nil {
		return fmt.Errorf("durable: send command %s to %s: %w", action, executionID, err)
	}
	return nil
}
