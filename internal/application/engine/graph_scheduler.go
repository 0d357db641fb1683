package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowforge/orchestrator/internal/application/observer"
	"github.com/flowforge/orchestrator/pkg/models"
)

// ErrFlowCancelled is returned by GraphScheduler.Execute when the run ends because a
// debugger Stop command fired, not because a node failed: a stop is cancellation, never
// failure.
var ErrFlowCancelled = errors.New("engine: flow cancelled")

// DebugCommand is a single control instruction sent to a running GraphScheduler.
type DebugCommand int

const (
	DebugCommandNone DebugCommand = iota
	DebugCommandPause
	DebugCommandResume
	DebugCommandStep
	DebugCommandStop
)

// DebugController gives an external caller (the execution workflow's command-polling loop)
// pause/resume/step/breakpoint control over a single in-flight GraphScheduler run. The
// gating primitive is a buffered resume channel plus a breakpoint set.
type DebugController struct {
	mu          sync.Mutex
	paused      bool
	stepOnce    bool
	stopped     bool
	breakpoints map[string]bool
	resumeCh    chan struct{}
}

// NewDebugController creates a controller that starts in the running (not paused) state.
func NewDebugController() *DebugController {
	return &DebugController{
		breakpoints: make(map[string]bool),
		resumeCh:    make(chan struct{}, 1),
	}
}

// SetBreakpoint toggles a breakpoint on a node ID.
func (d *DebugController) SetBreakpoint(nodeID string, enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if enabled {
		d.breakpoints[nodeID] = true
	} else {
		delete(d.breakpoints, nodeID)
	}
}

// Apply processes one external command.
func (d *DebugController) Apply(cmd DebugCommand) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch cmd {
	case DebugCommandPause:
		d.paused = true
	case DebugCommandResume:
		d.paused = false
		d.notifyResumeLocked()
	case DebugCommandStep:
		d.paused = true
		d.stepOnce = true
		d.notifyResumeLocked()
	case DebugCommandStop:
		d.stopped = true
		d.notifyResumeLocked()
	}
}

func (d *DebugController) notifyResumeLocked() {
	select {
	case d.resumeCh <- struct{}{}:
	default:
	}
}

// Stopped reports whether a Stop command has been issued.
func (d *DebugController) Stopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

// gate blocks the calling goroutine (one per node, right before dispatch) while paused, or
// while nodeID carries a breakpoint, until Resume/Step/Stop is applied. Returns false if the
// run was stopped while waiting.
func (d *DebugController) gate(ctx context.Context, nodeID string) bool {
	for {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return false
		}
		atBreakpoint := d.breakpoints[nodeID]
		shouldWait := d.paused || atBreakpoint
		if d.stepOnce {
			d.stepOnce = false
			shouldWait = false
		}
		d.mu.Unlock()

		if !shouldWait {
			return true
		}

		select {
		case <-d.resumeCh:
			continue
		case <-ctx.Done():
			return false
		}
	}
}

// nodeTask is the live scheduling record for one node in a concurrent run.
type nodeTask struct {
	node      *models.Node
	remaining int
}

// GraphScheduler is a concurrent dependency-count scheduler: unlike a wave-barrier model
// (every node in a wave must finish before the next wave starts), nodes here dispatch the
// instant their own dependency count reaches zero, so an unrelated slow branch never blocks
// a fast one. It drives DAGExecutor's node-level machinery (edge transfer, single-node
// execution, condition evaluation) and layers on the debugger gate, background actions,
// event-bound classification, and per-run event sequencing.
type GraphScheduler struct {
	exec  *DAGExecutor
	debug *DebugController
	seq   int64 // atomic: dense monotonic event index for this run
}

// NewGraphScheduler builds a scheduler over an existing DAGExecutor (reusing its
// nodeExecutor/observerManager/conditionCache), optionally attaching a DebugController.
func NewGraphScheduler(exec *DAGExecutor, debug *DebugController) *GraphScheduler {
	if debug == nil {
		debug = NewDebugController()
	}
	return &GraphScheduler{exec: exec, debug: debug}
}

// Debugger exposes the controller so callers (the execution workflow's command-polling
// loop) can pause/resume/step/set breakpoints on this in-flight run.
func (gs *GraphScheduler) Debugger() *DebugController {
	return gs.debug
}

// isReachable decides whether a node may self-start in this run. Nodes bound to an event
// listener (computed by the reachability walk in buildDAG) never run in a root context;
// they run only in a child context whose trigger event matches one of the binding names.
func isReachable(dag *DAG, node *models.Node, triggerEventName string) bool {
	names := dag.EventBound[node.ID]
	if len(names) == 0 {
		return true
	}
	if triggerEventName == "" {
		return false
	}
	return names[triggerEventName]
}

// Execute runs the graph to completion using dependency-count dispatch. maxConcurrency <= 0
// means unlimited (bounded only by the node count). Every node's completion synchronously
// computes and recursively launches its newly-ready children before the tracking WaitGroup
// is marked done, so there is no window where the run could be declared finished while a
// released child is still only queued. A backgrounding node releases its children as soon
// as its main body returns; the run itself still waits for the node's detached actions,
// whose last resolution decides the node's terminal status and event.
func (gs *GraphScheduler) Execute(ctx context.Context, execState *ExecutionState, opts *ExecutionOptions) error {
	dag := buildDAG(execState.Workflow)

	if err := validateDAG(dag); err != nil {
		return fmt.Errorf("DAG validation failed: %w", err)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	gs.emit(ctx, execState, observer.Event{
		Type:        observer.EventTypeExecutionStarted,
		ExecutionID: execState.ExecutionID,
		WorkflowID:  execState.WorkflowID,
		Timestamp:   time.Now(),
		Status:      "running",
	})

	tasks := make(map[string]*nodeTask, len(dag.Nodes))
	for id, node := range dag.Nodes {
		tasks[id] = &nodeTask{node: node, remaining: dag.InDegree[id]}
	}

	concurrency := opts.MaxParallelism
	if concurrency <= 0 {
		concurrency = len(dag.Nodes)
		if concurrency == 0 {
			concurrency = 1
		}
	}
	sem := make(chan struct{}, concurrency)

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	emitter := func(ctx context.Context, event observer.Event) {
		gs.emit(ctx, execState, event)
	}

	recordErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	var releaseChildren func(nodeID string)
	var launch func(node *models.Node)

	releaseChildren = func(nodeID string) {
		mu.Lock()
		var ready []*models.Node
		for _, childID := range dag.Edges[nodeID] {
			t, ok := tasks[childID]
			if !ok {
				continue
			}
			t.remaining--
			if t.remaining == 0 && isReachable(dag, t.node, execState.TriggerEventName) {
				ready = append(ready, t.node)
			}
		}
		mu.Unlock()
		for _, child := range sortNodesByPriority(ready) {
			launch(child)
		}
	}

	// runBackgroundActions detaches a backgrounding node's actions into the worker pool.
	// The node's children are already released; the last action to resolve settles the
	// node's terminal status and event.
	runBackgroundActions := func(node *models.Node, actions []BackgroundAction) {
		startTime, _ := execState.GetNodeStartTime(node.ID)
		pending := int32(len(actions))
		var actionErr error
		var actionMu sync.Mutex

		for _, action := range actions {
			action := action
			wg.Add(1)
			go func() {
				defer wg.Done()

				sem <- struct{}{}
				err := action(ctx)
				<-sem

				if err != nil {
					actionMu.Lock()
					if actionErr == nil {
						actionErr = err
					}
					actionMu.Unlock()
				}

				if atomic.AddInt32(&pending, -1) != 0 {
					return
				}

				// Last action resolved: settle the node.
				endTime := time.Now()
				execState.SetNodeEndTime(node.ID, endTime)
				duration := endTime.Sub(startTime).Milliseconds()

				actionMu.Lock()
				err = actionErr
				actionMu.Unlock()

				if err != nil {
					execState.SetNodeError(node.ID, err)
					execState.SetNodeStatus(node.ID, models.NodeExecutionStatusFailed)
					gs.emit(ctx, execState, observer.Event{
						Type:        observer.EventTypeNodeFailed,
						ExecutionID: execState.ExecutionID,
						WorkflowID:  execState.WorkflowID,
						Timestamp:   endTime,
						Status:      "failed",
						NodeID:      &node.ID,
						NodeName:    &node.Name,
						NodeType:    &node.Type,
						Error:       err,
						DurationMs:  &duration,
					})
					recordErr(fmt.Errorf("node %s background action failed: %w", node.ID, err))
					return
				}

				execState.SetNodeStatus(node.ID, models.NodeExecutionStatusCompleted)
				gs.emit(ctx, execState, observer.Event{
					Type:        observer.EventTypeNodeCompleted,
					ExecutionID: execState.ExecutionID,
					WorkflowID:  execState.WorkflowID,
					Timestamp:   endTime,
					Status:      "completed",
					NodeID:      &node.ID,
					NodeName:    &node.Name,
					NodeType:    &node.Type,
					DurationMs:  &duration,
				})
			}()
		}
	}

	skipNode := func(node *models.Node, reason string) {
		execState.SetNodeStatus(node.ID, models.NodeExecutionStatusSkipped)
		gs.emit(ctx, execState, observer.Event{
			Type:        observer.EventTypeNodeSkipped,
			ExecutionID: execState.ExecutionID,
			WorkflowID:  execState.WorkflowID,
			Timestamp:   time.Now(),
			Status:      "skipped",
			NodeID:      &node.ID,
			NodeName:    &node.Name,
			NodeType:    &node.Type,
			Message:     &reason,
		})
	}

	launch = func(node *models.Node) {
		wg.Add(1)
		go func() {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if !gs.debug.gate(ctx, node.ID) {
				skipNode(node, "execution stopped")
				releaseChildren(node.ID)
				return
			}

			// Edge-transfer step: a transfer failure skips the target, never the flow.
			ok, skipReason := gs.exec.transferEdges(ctx, execState, dag, node, emitter)
			if !ok {
				skipNode(node, skipReason)
				releaseChildren(node.ID)
				return
			}

			result, err := gs.exec.executeNode(ctx, execState, node, opts, emitter)
			if err != nil {
				recordErr(fmt.Errorf("node %s failed: %w", node.ID, err))
				if !opts.ContinueOnError {
					return // fail-fast: the frontier stops expanding past this node
				}
				releaseChildren(node.ID)
				return
			}

			if len(result.backgroundActions) > 0 {
				runBackgroundActions(node, result.backgroundActions)
			}
			releaseChildren(node.ID)
		}()
	}

	var seeds []*models.Node
	for id, node := range dag.Nodes {
		if tasks[id].remaining == 0 && isReachable(dag, node, execState.TriggerEventName) {
			seeds = append(seeds, node)
		}
	}
	for _, node := range sortNodesByPriority(seeds) {
		launch(node)
	}

	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
	case <-ctx.Done():
		gs.emit(ctx, execState, observer.Event{
			Type:        observer.EventTypeExecutionTimedOut,
			ExecutionID: execState.ExecutionID,
			WorkflowID:  execState.WorkflowID,
			Timestamp:   time.Now(),
			Status:      "timed_out",
		})
		return fmt.Errorf("execution timed out: %w", ctx.Err())
	}

	if gs.debug.Stopped() {
		gs.emit(ctx, execState, observer.Event{
			Type:        observer.EventTypeExecutionCancelled,
			ExecutionID: execState.ExecutionID,
			WorkflowID:  execState.WorkflowID,
			Timestamp:   time.Now(),
			Status:      "cancelled",
		})
		return ErrFlowCancelled
	}

	mu.Lock()
	err := firstErr
	mu.Unlock()

	if err != nil {
		gs.emit(ctx, execState, observer.Event{
			Type:        observer.EventTypeExecutionFailed,
			ExecutionID: execState.ExecutionID,
			WorkflowID:  execState.WorkflowID,
			Timestamp:   time.Now(),
			Status:      "failed",
			Error:       err,
		})
		return err
	}

	gs.emit(ctx, execState, observer.Event{
		Type:        observer.EventTypeExecutionCompleted,
		ExecutionID: execState.ExecutionID,
		WorkflowID:  execState.WorkflowID,
		Timestamp:   time.Now(),
		Status:      "completed",
	})
	return nil
}

// emit assigns the next dense sequence index and forwards to the observer manager behind
// DAGExecutor's panic-recovery wrapper.
func (gs *GraphScheduler) emit(ctx context.Context, execState *ExecutionState, event observer.Event) {
	event.SequenceIndex = atomic.AddInt64(&gs.seq, 1)
	gs.exec.safeNotify(ctx, event)
}
