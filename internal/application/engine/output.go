package engine

import "github.com/flowforge/orchestrator/pkg/models"

// FindLeafNodes returns the nodes with no outgoing edges, the same notion of "final" node
// ExecutionManager.getFinalOutput uses for single-flow executions.
func FindLeafNodes(workflow *models.Workflow) []*models.Node {
	hasOutgoing := make(map[string]bool)
	for _, edge := range workflow.Edges {
		hasOutgoing[edge.From] = true
	}

	leaves := []*models.Node{}
	for _, node := range workflow.Nodes {
		if !hasOutgoing[node.ID] {
			leaves = append(leaves, node)
		}
	}
	return leaves
}

// FinalOutput derives a flow's overall output from its leaf nodes: a single leaf's output is
// returned directly, multiple leaves are merged namespaced by node ID. Shared by
// ExecutionManager and the durable execution workflow so both report output the same way
// regardless of which scheduler (wave-barrier or concurrent) drove the run.
func FinalOutput(execState *ExecutionState, workflow *models.Workflow) map[string]interface{} {
	leafNodes := FindLeafNodes(workflow)
	if len(leafNodes) == 0 {
		return nil
	}

	if len(leafNodes) == 1 {
		if output, ok := execState.GetNodeOutput(leafNodes[0].ID); ok {
			if outputMap, ok := output.(map[string]interface{}); ok {
				return outputMap
			}
		}
		return nil
	}

	merged := make(map[string]interface{})
	for _, node := range leafNodes {
		if output, ok := execState.GetNodeOutput(node.ID); ok {
			merged[node.ID] = output
		}
	}
	return merged
}
