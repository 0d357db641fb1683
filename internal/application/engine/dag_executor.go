package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/flowforge/orchestrator/internal/application/observer"
	"github.com/flowforge/orchestrator/pkg/models"
)

// DAGExecutor carries the node-level half of the engine: running a single node (timeout,
// retry, result bookkeeping, background-action extraction), transferring values across a
// node's incoming edges, and evaluating edge conditions. Scheduling, deciding which node
// runs when, lives in GraphScheduler, which drives these methods from its dependency-count
// dispatch loop and supplies the emit callback so every event gets the run's dense
// sequence index.
type DAGExecutor struct {
	nodeExecutor    *NodeExecutor
	observerManager *observer.ObserverManager
	conditionCache  *ConditionCache // Cache for compiled edge conditions
}

// NewDAGExecutor creates a new DAG executor
func NewDAGExecutor(nodeExecutor *NodeExecutor, observerManager *observer.ObserverManager) *DAGExecutor {
	return &DAGExecutor{
		nodeExecutor:    nodeExecutor,
		observerManager: observerManager,
		conditionCache:  NewConditionCache(100), // Cache up to 100 compiled conditions
	}
}

// ObserverManager exposes the executor's shared observer manager so long-lived callers (the
// durable execution workflow) can register a per-execution observer for the duration of one run.
func (de *DAGExecutor) ObserverManager() *observer.ObserverManager {
	return de.observerManager
}

// emitFunc delivers one engine event. GraphScheduler binds this to its sequence counter.
type emitFunc func(ctx context.Context, event observer.Event)

// BackgroundAction is one detached unit of work a node hands back from its execute: the
// node counts as done for scheduling purposes while its actions are still running.
type BackgroundAction func(ctx context.Context) error

// nodeRunResult is what a successful node run hands back to the scheduler.
type nodeRunResult struct {
	backgroundActions []BackgroundAction
}

// sortNodesByPriority sorts nodes by priority (higher priority first)
func sortNodesByPriority(nodes []*models.Node) []*models.Node {
	sorted := make([]*models.Node, len(nodes))
	copy(sorted, nodes)

	// Simple insertion sort by priority
	for i := 1; i < len(sorted); i++ {
		key := sorted[i]
		keyPriority := getNodePriority(key)
		j := i - 1

		for j >= 0 && getNodePriority(sorted[j]) < keyPriority {
			sorted[j+1] = sorted[j]
			j--
		}
		sorted[j+1] = key
	}

	return sorted
}

// executeNode executes a single node with timeout and retry support. On success it returns
// the node's detached background actions (if any); when actions are present the node is left
// in the backgrounding state with NODE_BACKGROUNDED emitted, and the scheduler owns the
// transition to its final status once the last action resolves.
func (de *DAGExecutor) executeNode(
	ctx context.Context,
	execState *ExecutionState,
	node *models.Node,
	opts *ExecutionOptions,
	emit emitFunc,
) (*nodeRunResult, error) {
	nodeStartTime := time.Now()

	// Check for cancellation before starting
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("execution cancelled before node start: %w", ctx.Err())
	default:
	}

	// Mark as running and record start time
	execState.SetNodeStatus(node.ID, models.NodeExecutionStatusRunning)
	execState.SetNodeStartTime(node.ID, nodeStartTime)

	emit(ctx, observer.Event{
		Type:        observer.EventTypeNodeStarted,
		ExecutionID: execState.ExecutionID,
		WorkflowID:  execState.WorkflowID,
		Timestamp:   nodeStartTime,
		Status:      "running",
		NodeID:      &node.ID,
		NodeName:    &node.Name,
		NodeType:    &node.Type,
	})

	// Create node-specific context with timeout
	nodeCtx := ctx
	nodeTimeoutMs := getNodeTimeout(node)
	if nodeTimeoutMs > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(ctx, time.Duration(nodeTimeoutMs)*time.Millisecond)
		defer cancel()
	} else if opts.NodeTimeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(ctx, opts.NodeTimeout)
		defer cancel()
	}

	// Get parent nodes
	parentNodes := getParentNodes(execState.Workflow, node)

	// Prepare node context
	nodeExecCtx := PrepareNodeContext(execState, node, parentNodes, opts)

	// Execute node with retry policy
	var execResult *NodeExecutionResult
	var execErr error

	retryPolicy := opts.RetryPolicy
	if retryPolicy == nil {
		retryPolicy = NoRetryPolicy()
	}

	// Setup retry callback to update observer
	retryPolicy.OnRetry = func(attempt int, err error) {
		emit(ctx, observer.Event{
			Type:        observer.EventTypeNodeStarted, // Reuse started event for retry
			ExecutionID: execState.ExecutionID,
			WorkflowID:  execState.WorkflowID,
			Timestamp:   time.Now(),
			Status:      "retrying",
			NodeID:      &node.ID,
			NodeName:    &node.Name,
			NodeType:    &node.Type,
			Error:       err,
		})
	}

	execErr = retryPolicy.Execute(nodeCtx, func() error {
		result, err := de.nodeExecutor.Execute(nodeCtx, nodeExecCtx)
		if err == nil {
			execResult = result
		}
		return err
	})

	// Check if execution was successful
	if execErr != nil {
		nodeEndTime := time.Now()
		// Store error and mark as failed
		execState.SetNodeError(node.ID, execErr)
		execState.SetNodeStatus(node.ID, models.NodeExecutionStatusFailed)
		execState.SetNodeEndTime(node.ID, nodeEndTime)

		nodeDuration := time.Since(nodeStartTime).Milliseconds()
		emit(ctx, observer.Event{
			Type:        observer.EventTypeNodeFailed,
			ExecutionID: execState.ExecutionID,
			WorkflowID:  execState.WorkflowID,
			Timestamp:   time.Now(),
			Status:      "failed",
			NodeID:      &node.ID,
			NodeName:    &node.Name,
			NodeType:    &node.Type,
			Error:       execErr,
			DurationMs:  &nodeDuration,
		})

		return nil, execErr
	}

	nodeEndTime := time.Now()

	// Check output size if limit is set
	if opts.MaxOutputSize > 0 {
		outputSize := estimateSize(execResult.Output)
		if outputSize > opts.MaxOutputSize {
			err := fmt.Errorf("node output size (%d bytes) exceeds limit (%d bytes)", outputSize, opts.MaxOutputSize)
			execState.SetNodeError(node.ID, err)
			execState.SetNodeStatus(node.ID, models.NodeExecutionStatusFailed)
			execState.SetNodeEndTime(node.ID, nodeEndTime)
			return nil, err
		}
	}

	// Background actions ride on a reserved output key the same way emitted events do; they
	// are stripped before the output is stored because function values never serialize.
	backgroundActions := extractBackgroundActions(execResult.Output)

	// Store execution result with metadata
	execState.SetNodeOutput(node.ID, execResult.Output)
	execState.SetNodeInput(node.ID, execResult.Input)
	execState.SetNodeConfig(node.ID, execResult.Config)
	execState.SetNodeResolvedConfig(node.ID, execResult.ResolvedConfig)

	// A node's output may declare domain events to raise, carried as a reserved
	// "_emitEvents" key rather than a language-level context object: node-type bodies are
	// external collaborators the engine only ever sees through their returned output map.
	for _, evt := range extractEmittedEvents(execResult.Output) {
		execState.EmitEvent(evt.Name, evt.Payload, node.ID)
	}

	// Check total memory usage
	if opts.MaxTotalMemory > 0 {
		totalMemory := execState.GetTotalMemoryUsage()
		if totalMemory > opts.MaxTotalMemory {
			// Log warning but don't fail (could implement cleanup here)
			emit(ctx, observer.Event{
				Type:        observer.EventTypeNodeCompleted,
				ExecutionID: execState.ExecutionID,
				WorkflowID:  execState.WorkflowID,
				Timestamp:   time.Now(),
				Status:      "warning",
				NodeID:      &node.ID,
				Message:     ptrString(fmt.Sprintf("Total memory usage (%d) exceeds limit (%d)", totalMemory, opts.MaxTotalMemory)),
			})
		}
	}

	if len(backgroundActions) > 0 {
		// Done from the scheduler's standpoint, but not yet terminal: the last background
		// action's resolution decides completed vs failed.
		execState.SetNodeStatus(node.ID, models.NodeExecutionStatusBackgrounding)
		emit(ctx, observer.Event{
			Type:        observer.EventTypeNodeBackgrounded,
			ExecutionID: execState.ExecutionID,
			WorkflowID:  execState.WorkflowID,
			Timestamp:   time.Now(),
			Status:      "backgrounding",
			NodeID:      &node.ID,
			NodeName:    &node.Name,
			NodeType:    &node.Type,
		})
		return &nodeRunResult{backgroundActions: backgroundActions}, nil
	}

	execState.SetNodeStatus(node.ID, models.NodeExecutionStatusCompleted)
	execState.SetNodeEndTime(node.ID, nodeEndTime)

	nodeDuration := time.Since(nodeStartTime).Milliseconds()
	event := observer.Event{
		Type:        observer.EventTypeNodeCompleted,
		ExecutionID: execState.ExecutionID,
		WorkflowID:  execState.WorkflowID,
		Timestamp:   time.Now(),
		Status:      "completed",
		NodeID:      &node.ID,
		NodeName:    &node.Name,
		NodeType:    &node.Type,
		DurationMs:  &nodeDuration,
	}

	event.Output = toMapInterface(execResult.Output)

	emit(ctx, event)

	return &nodeRunResult{}, nil
}

// transferEdges performs the discrete edge-transfer step that precedes a node's run: every
// incoming edge moves its source's value toward the target in parallel, each transfer
// emitting its own started/completed/failed event. The target is satisfied when at least
// one transfer completes (OR-of-sources); with none, the combined failure reasons become
// the node's skip reason.
func (de *DAGExecutor) transferEdges(
	ctx context.Context,
	execState *ExecutionState,
	dag *DAG,
	node *models.Node,
	emit emitFunc,
) (bool, string) {
	incoming := dag.Index.EdgesByTarget[node.ID]
	if len(incoming) == 0 {
		return true, "" // start node
	}

	type transferOutcome struct {
		ok     bool
		reason string
	}
	outcomes := make([]transferOutcome, len(incoming))

	var wg sync.WaitGroup
	for i, edge := range incoming {
		wg.Add(1)
		go func(i int, edge *models.Edge) {
			defer wg.Done()

			emit(ctx, observer.Event{
				Type:        observer.EventTypeEdgeTransferStarted,
				ExecutionID: execState.ExecutionID,
				WorkflowID:  execState.WorkflowID,
				Timestamp:   time.Now(),
				Status:      "running",
				EdgeID:      &edge.ID,
				FromNodeID:  &edge.From,
				ToNodeID:    &edge.To,
			})

			ok, reason := de.transferEdge(execState, edge)
			outcomes[i] = transferOutcome{ok: ok, reason: reason}

			eventType := observer.EventTypeEdgeTransferCompleted
			status := "completed"
			var message *string
			if !ok {
				eventType = observer.EventTypeEdgeTransferFailed
				status = "failed"
				message = &reason
			}
			emit(ctx, observer.Event{
				Type:        eventType,
				ExecutionID: execState.ExecutionID,
				WorkflowID:  execState.WorkflowID,
				Timestamp:   time.Now(),
				Status:      status,
				EdgeID:      &edge.ID,
				FromNodeID:  &edge.From,
				ToNodeID:    &edge.To,
				Message:     message,
			})
		}(i, edge)
	}
	wg.Wait()

	reasons := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.ok {
			return true, ""
		}
		reasons = append(reasons, outcome.reason)
	}
	return false, strings.Join(reasons, "; ")
}

// transferEdge validates a single edge: the source must have finished its own run
// (completed, or backgrounding with its value already published), the edge condition must
// hold, and conditional-node branch routing must select this edge.
func (de *DAGExecutor) transferEdge(execState *ExecutionState, edge *models.Edge) (bool, string) {
	sourceNode := findNodeByID(execState.Workflow.Nodes, edge.From)
	if sourceNode == nil {
		return false, fmt.Sprintf("source node %s not found", edge.From)
	}

	sourceStatus, _ := execState.GetNodeStatus(sourceNode.ID)
	if sourceStatus != models.NodeExecutionStatusCompleted &&
		sourceStatus != models.NodeExecutionStatusBackgrounding {
		return false, fmt.Sprintf("wrong status of source node: %s", sourceStatus)
	}

	if edge.Condition != "" {
		passed, err := de.evaluateEdgeCondition(edge, execState, sourceNode)
		if err != nil {
			return false, fmt.Sprintf("condition error: %v", err)
		}
		if !passed {
			return false, fmt.Sprintf("condition '%s' is false", edge.Condition)
		}
	}

	if sourceNode.Type == NodeTypeConditional && edge.SourceHandle != "" {
		passed, err := evaluateSourceHandleCondition(edge, execState, sourceNode)
		if err != nil {
			return false, fmt.Sprintf("sourceHandle error: %v", err)
		}
		if !passed {
			return false, fmt.Sprintf("conditional branch '%s' not active", edge.SourceHandle)
		}
	}

	return true, ""
}

// safeNotify wraps observer notifications with panic recovery
func (de *DAGExecutor) safeNotify(ctx context.Context, event observer.Event) {
	if de.observerManager == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			// Log the panic but don't crash execution
			fmt.Printf("Observer notification panicked: %v\n", r)
		}
	}()

	de.observerManager.Notify(ctx, event)
}

// ptrString returns a pointer to a string
func ptrString(s string) *string {
	return &s
}

// DAG represents workflow graph with indexed lookups
type DAG struct {
	Nodes    map[string]*models.Node
	Edges    map[string][]string // nodeID -> []childNodeIDs
	InDegree map[string]int      // nodeID -> number of parents
	Index    *DAGIndex           // Indexed lookups for O(1) access

	// EventBound maps a node to the event names whose listener it is connected to. A node
	// in this map never self-starts in a root execution context; it runs only in a child
	// context whose trigger event matches one of the names.
	EventBound map[string]map[string]bool
}

// DAGIndex provides O(1) lookups for common operations
type DAGIndex struct {
	ParentsByNode map[string][]*models.Node // nodeID -> parent nodes
	EdgesByTarget map[string][]*models.Edge // nodeID -> incoming edges
	EdgesBySource map[string][]*models.Edge // nodeID -> outgoing edges
	NodesByID     map[string]*models.Node   // nodeID -> node (fast lookup)
}

// buildDAG builds DAG from workflow with indexed lookups
func buildDAG(workflow *models.Workflow) *DAG {
	dag := &DAG{
		Nodes:    make(map[string]*models.Node),
		Edges:    make(map[string][]string),
		InDegree: make(map[string]int),
		Index: &DAGIndex{
			ParentsByNode: make(map[string][]*models.Node),
			EdgesByTarget: make(map[string][]*models.Edge),
			EdgesBySource: make(map[string][]*models.Edge),
			NodesByID:     make(map[string]*models.Node),
		},
	}

	// Add nodes
	for _, node := range workflow.Nodes {
		dag.Nodes[node.ID] = node
		dag.InDegree[node.ID] = 0
		dag.Index.NodesByID[node.ID] = node
		dag.Index.ParentsByNode[node.ID] = []*models.Node{} // Initialize empty slice
	}

	// Add edges and build parent index
	for _, edge := range workflow.Edges {
		dag.Edges[edge.From] = append(dag.Edges[edge.From], edge.To)
		dag.InDegree[edge.To]++

		// Index edges by target and source
		dag.Index.EdgesByTarget[edge.To] = append(dag.Index.EdgesByTarget[edge.To], edge)
		dag.Index.EdgesBySource[edge.From] = append(dag.Index.EdgesBySource[edge.From], edge)

		// Build parent relationships
		if parentNode := dag.Index.NodesByID[edge.From]; parentNode != nil {
			dag.Index.ParentsByNode[edge.To] = append(dag.Index.ParentsByNode[edge.To], parentNode)
		}
	}

	dag.EventBound = computeEventBound(dag, workflow)

	return dag
}

// computeEventBound classifies event-bound nodes at graph-build time: for every listener
// node flagged disableAutoExecution with a declared eventName, everything reachable
// upstream or downstream of it (the listener included) is bound to that event. The walk is
// over the undirected edge set, so diverging and re-joining branches around a listener are
// classified consistently.
func computeEventBound(dag *DAG, workflow *models.Workflow) map[string]map[string]bool {
	bound := make(map[string]map[string]bool)

	// Undirected adjacency
	adjacent := make(map[string][]string)
	for _, edge := range workflow.Edges {
		adjacent[edge.From] = append(adjacent[edge.From], edge.To)
		adjacent[edge.To] = append(adjacent[edge.To], edge.From)
	}

	for _, node := range workflow.Nodes {
		if node.Metadata == nil {
			continue
		}
		disabled, _ := node.Metadata["disableAutoExecution"].(bool)
		if !disabled {
			continue
		}
		eventName, _ := node.Metadata["eventName"].(string)

		// BFS over the listener's connected component
		visited := map[string]bool{node.ID: true}
		queue := []string{node.ID}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]

			if bound[current] == nil {
				bound[current] = make(map[string]bool)
			}
			if eventName != "" {
				bound[current][eventName] = true
			}

			for _, next := range adjacent[current] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
	}

	return bound
}

// validateDAG rejects cyclic graphs before any node runs, using Kahn-style in-degree
// elimination: if the frontier dries up with nodes left over, those nodes form a cycle.
func validateDAG(dag *DAG) error {
	inDegree := make(map[string]int)
	for k, v := range dag.InDegree {
		inDegree[k] = v
	}

	frontier := []string{}
	for nodeID, degree := range inDegree {
		if degree == 0 {
			frontier = append(frontier, nodeID)
		}
	}

	processed := 0
	for len(frontier) > 0 {
		nodeID := frontier[0]
		frontier = frontier[1:]
		processed++

		for _, childID := range dag.Edges[nodeID] {
			inDegree[childID]--
			if inDegree[childID] == 0 {
				frontier = append(frontier, childID)
			}
		}
	}

	if processed != len(dag.Nodes) {
		return fmt.Errorf("cycle detected in workflow graph")
	}
	return nil
}

// getParentNodes returns parent nodes for a given node using helpers
func getParentNodes(workflow *models.Workflow, node *models.Node) []*models.Node {
	parents := []*models.Node{}
	incomingEdges := collectIncomingEdges(workflow.Edges, node.ID)

	for _, edge := range incomingEdges {
		if parentNode := findNodeByID(workflow.Nodes, edge.From); parentNode != nil {
			parents = append(parents, parentNode)
		}
	}

	return parents
}

// evaluateEdgeCondition evaluates the condition expression on an edge using cache.
// Returns true if the condition passes, false otherwise.
func (de *DAGExecutor) evaluateEdgeCondition(
	edge *models.Edge,
	execState *ExecutionState,
	sourceNode *models.Node,
) (bool, error) {
	condition := edge.Condition
	if condition == "" {
		return true, nil // No condition = always pass
	}

	// Get output from source node
	output, _ := execState.GetNodeOutput(sourceNode.ID)

	// Prepare environment for expression evaluation
	env := map[string]interface{}{
		"output": output,
		"node":   sourceNode.ID,
	}

	// Compile and cache the expression
	program, err := de.conditionCache.CompileAndCache(condition, env)
	if err != nil {
		return false, fmt.Errorf("failed to compile edge condition: %w", err)
	}

	// Execute the compiled program
	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate edge condition: %w", err)
	}

	if boolResult, ok := result.(bool); ok {
		return boolResult, nil
	}

	return false, fmt.Errorf("edge condition must return boolean, got: %T", result)
}

// evaluateSourceHandleCondition checks if the edge's sourceHandle matches
// the output of a conditional node.
// For conditional nodes, output is typically a boolean (true/false).
func evaluateSourceHandleCondition(
	edge *models.Edge,
	execState *ExecutionState,
	sourceNode *models.Node,
) (bool, error) {
	// Get output from conditional node
	output, ok := execState.GetNodeOutput(sourceNode.ID)
	if !ok {
		return false, fmt.Errorf("conditional node %s has no output", sourceNode.ID)
	}

	// Conditional nodes return boolean
	if boolOutput, ok := output.(bool); ok {
		switch edge.SourceHandle {
		case SourceHandleTrue:
			return boolOutput, nil
		case SourceHandleFalse:
			return !boolOutput, nil
		default:
			// Unknown handle - let it pass
			return true, nil
		}
	}

	// If output is a map, check for "result" key
	if mapOutput, ok := output.(map[string]interface{}); ok {
		if result, exists := mapOutput["result"]; exists {
			if boolResult, ok := result.(bool); ok {
				switch edge.SourceHandle {
				case SourceHandleTrue:
					return boolResult, nil
				case SourceHandleFalse:
					return !boolResult, nil
				}
			}
		}
	}

	// Can't determine - default to pass
	return true, nil
}
