package models

import (
	"github.com/google/uuid"

	"github.com/flowforge/orchestrator/pkg/models"
)

// Model/domain converters for the workflow graph and its execution records. The
// XFromStorage/XToStorage family in mappers.go covers the authoring path; these cover the
// read path used by handlers and the engine, where logical IDs replace storage UUIDs.

// WorkflowModelToDomain converts a storage workflow (with loaded relations) to the domain
// representation, using logical node and edge IDs.
func WorkflowModelToDomain(wm *WorkflowModel) *models.Workflow {
	if wm == nil {
		return nil
	}

	workflow := &models.Workflow{
		ID:          wm.ID.String(),
		Name:        wm.Name,
		Description: wm.Description,
		Version:     wm.Version,
		Status:      models.WorkflowStatus(wm.Status),
		Variables:   make(map[string]interface{}),
		Metadata:    make(map[string]interface{}),
		CreatedAt:   wm.CreatedAt,
		UpdatedAt:   wm.UpdatedAt,
	}

	if wm.Variables != nil {
		workflow.Variables = map[string]interface{}(wm.Variables)
	}
	if wm.Metadata != nil {
		workflow.Metadata = map[string]interface{}(wm.Metadata)
	}

	workflow.Nodes = make([]*models.Node, 0, len(wm.Nodes))
	for _, nm := range wm.Nodes {
		workflow.Nodes = append(workflow.Nodes, NodeModelToDomain(nm))
	}

	workflow.Edges = make([]*models.Edge, 0, len(wm.Edges))
	for _, em := range wm.Edges {
		workflow.Edges = append(workflow.Edges, EdgeModelToDomain(em))
	}

	return workflow
}

// NodeModelToDomain converts a storage node, keyed by its logical node ID.
func NodeModelToDomain(nm *NodeModel) *models.Node {
	if nm == nil {
		return nil
	}

	node := &models.Node{
		ID:     nm.NodeID,
		Name:   nm.Name,
		Type:   nm.Type,
		Config: make(map[string]interface{}),
	}

	if nm.Config != nil {
		node.Config = map[string]interface{}(nm.Config)
	}
	// Listener metadata (disableAutoExecution, eventName) travels under the reserved
	// "_metadata" config key, since the nodes table stores only the executor-facing config
	// blob; the engine derives event-bound reachability from it at graph-build time.
	if meta, ok := node.Config["_metadata"].(map[string]interface{}); ok {
		node.Metadata = meta
	}

	if nm.Position != nil {
		posMap := map[string]interface{}(nm.Position)
		if x, ok := posMap["x"].(float64); ok {
			if y, ok := posMap["y"].(float64); ok {
				node.Position = &models.Position{X: x, Y: y}
			}
		}
	}

	return node
}

// EdgeModelToDomain converts a storage edge, keyed by its logical edge and node IDs.
func EdgeModelToDomain(em *EdgeModel) *models.Edge {
	if em == nil {
		return nil
	}

	edge := &models.Edge{
		ID:   em.EdgeID,
		From: em.FromNodeID,
		To:   em.ToNodeID,
	}

	if em.Condition != nil {
		if expr, ok := em.Condition["expression"].(string); ok {
			edge.Condition = expr
		}
	}

	return edge
}

// ExecutionModelToDomain converts a storage execution row (with loaded node executions).
func ExecutionModelToDomain(exm *ExecutionModel) *models.Execution {
	if exm == nil {
		return nil
	}

	exec := &models.Execution{
		ID:          exm.ID.String(),
		WorkflowID:  exm.WorkflowID.String(),
		Status:      models.ExecutionStatus(exm.Status),
		Error:       exm.Error,
		CompletedAt: exm.CompletedAt,
	}

	if exm.StartedAt != nil {
		exec.StartedAt = *exm.StartedAt
	}
	if exm.InputData != nil {
		exec.Input = map[string]interface{}(exm.InputData)
	}
	if exm.OutputData != nil {
		exec.Output = map[string]interface{}(exm.OutputData)
	}
	if exm.Variables != nil {
		exec.Variables = map[string]interface{}(exm.Variables)
	}

	exec.NodeExecutions = make([]*models.NodeExecution, 0, len(exm.NodeExecutions))
	for _, nem := range exm.NodeExecutions {
		exec.NodeExecutions = append(exec.NodeExecutions, NodeExecutionModelToDomain(nem))
	}

	return exec
}

// ExecutionDomainToModel converts a domain execution back to its storage row. Non-UUID
// identifiers map to the zero UUID rather than failing, since callers persist partial
// records during a run.
func ExecutionDomainToModel(exec *models.Execution) *ExecutionModel {
	if exec == nil {
		return nil
	}

	id, _ := uuid.Parse(exec.ID)
	wfID, _ := uuid.Parse(exec.WorkflowID)

	exm := &ExecutionModel{
		ID:         id,
		WorkflowID: wfID,
		Status:     string(exec.Status),
		Error:      exec.Error,
	}

	if !exec.StartedAt.IsZero() {
		started := exec.StartedAt
		exm.StartedAt = &started
	}
	if exec.CompletedAt != nil {
		completed := *exec.CompletedAt
		exm.CompletedAt = &completed
	}
	if exec.Input != nil {
		exm.InputData = JSONBMap(exec.Input)
	}
	if exec.Output != nil {
		exm.OutputData = JSONBMap(exec.Output)
	}
	if exec.Variables != nil {
		exm.Variables = JSONBMap(exec.Variables)
	}

	exm.NodeExecutions = make([]*NodeExecutionModel, 0, len(exec.NodeExecutions))
	for _, ne := range exec.NodeExecutions {
		exm.NodeExecutions = append(exm.NodeExecutions, NodeExecutionDomainToModel(ne))
	}

	return exm
}

// NodeExecutionModelToDomain converts one storage node execution record.
func NodeExecutionModelToDomain(nem *NodeExecutionModel) *models.NodeExecution {
	if nem == nil {
		return nil
	}

	ne := &models.NodeExecution{
		ID:          nem.ID.String(),
		ExecutionID: nem.ExecutionID.String(),
		NodeID:      nem.NodeID.String(),
		Status:      models.NodeExecutionStatus(nem.Status),
		Error:       nem.Error,
		RetryCount:  nem.RetryCount,
		CompletedAt: nem.CompletedAt,
	}

	if nem.StartedAt != nil {
		ne.StartedAt = *nem.StartedAt
	}
	if nem.InputData != nil {
		ne.Input = map[string]interface{}(nem.InputData)
	}
	if nem.OutputData != nil {
		ne.Output = map[string]interface{}(nem.OutputData)
	}
	if nem.Config != nil {
		ne.Config = map[string]interface{}(nem.Config)
	}
	if nem.ResolvedConfig != nil {
		ne.ResolvedConfig = map[string]interface{}(nem.ResolvedConfig)
	}
	if nem.StartedAt != nil && nem.CompletedAt != nil {
		ne.Duration = nem.CompletedAt.Sub(*nem.StartedAt).Milliseconds()
	}

	return ne
}

// NodeExecutionDomainToModel converts one domain node execution back to storage form.
func NodeExecutionDomainToModel(ne *models.NodeExecution) *NodeExecutionModel {
	if ne == nil {
		return nil
	}

	id, _ := uuid.Parse(ne.ID)
	execID, _ := uuid.Parse(ne.ExecutionID)
	nodeID, _ := uuid.Parse(ne.NodeID)

	nem := &NodeExecutionModel{
		ID:          id,
		ExecutionID: execID,
		NodeID:      nodeID,
		Status:      string(ne.Status),
		Error:       ne.Error,
		RetryCount:  ne.RetryCount,
	}

	if !ne.StartedAt.IsZero() {
		started := ne.StartedAt
		nem.StartedAt = &started
	}
	if ne.CompletedAt != nil {
		completed := *ne.CompletedAt
		nem.CompletedAt = &completed
	}
	if ne.Input != nil {
		nem.InputData = JSONBMap(ne.Input)
	}
	if ne.Output != nil {
		nem.OutputData = JSONBMap(ne.Output)
	}
	if ne.Config != nil {
		nem.Config = JSONBMap(ne.Config)
	}
	if ne.ResolvedConfig != nil {
		nem.ResolvedConfig = JSONBMap(ne.ResolvedConfig)
	}

	return nem
}
